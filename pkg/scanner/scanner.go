// Package scanner searches a firmware image for runs of values that look
// like table axes, to help locate the tables of a new variant.
package scanner

import (
	"encoding/binary"
	"fmt"

	"github.com/pterm/pterm"
	"gonum.org/v1/gonum/stat"

	"github.com/tosih/map-rescaler/pkg/models"
)

// Options tune the axis search.
type Options struct {
	Length    int   // values per axis
	BitWidths []int // 8 and/or 16
	MinSpan   float64
}

// DefaultOptions looks for 16-value 16-bit axes spanning at least 100 raw
// units, the shape of the RPM axes of the known variants.
func DefaultOptions() Options {
	return Options{Length: 16, BitWidths: []int{16}, MinSpan: 100}
}

// Candidate is a strictly increasing run of raw little-endian values.
type Candidate struct {
	Offset   int
	Length   int
	BitWidth int
	Values   []float64
	Min      float64
	Max      float64
	Variance float64
}

// Definition returns an identity-scaled axis definition for the candidate.
func (c Candidate) Definition(name string) models.TableDefinition {
	return models.TableDefinition{
		Name:     name,
		Offset:   int64(c.Offset),
		Shape:    models.AxisShape(c.Length),
		BitWidth: c.BitWidth,
		Scaling:  models.Identity(),
	}
}

// ScanAxes returns every strictly increasing run of opts.Length values
// whose span is at least opts.MinSpan. Runs are aligned to their value
// width; once a run matches, the search resumes after it.
func ScanAxes(data []byte, opts Options) ([]Candidate, error) {
	if opts.Length < 2 {
		return nil, fmt.Errorf("%w: axis length must be at least 2", models.ErrInvalidDefinition)
	}

	var results []Candidate
	for _, bits := range opts.BitWidths {
		if bits != 8 && bits != 16 {
			return nil, fmt.Errorf("%w: %d", models.ErrUnsupportedBitWidth, bits)
		}
		width := bits / 8
		byteCount := opts.Length * width

		for offset := 0; offset+byteCount <= len(data); {
			if c := scanRun(data, offset, opts.Length, bits); c != nil && c.Max-c.Min >= opts.MinSpan {
				results = append(results, *c)
				offset += byteCount
				continue
			}
			offset += width
		}
	}
	return results, nil
}

func scanRun(data []byte, offset, length, bits int) *Candidate {
	values := make([]float64, length)
	for i := range values {
		values[i] = readRaw(data, offset, i, bits)
		if i > 0 && values[i] <= values[i-1] {
			return nil
		}
	}

	_, variance := stat.PopMeanVariance(values, nil)
	return &Candidate{
		Offset:   offset,
		Length:   length,
		BitWidth: bits,
		Values:   values,
		Min:      values[0],
		Max:      values[length-1],
		Variance: variance,
	}
}

func readRaw(data []byte, offset, i, bits int) float64 {
	if bits == 8 {
		return float64(data[offset+i])
	}
	p := offset + 2*i
	return float64(binary.LittleEndian.Uint16(data[p : p+2]))
}

// DisplayResults prints the candidates as a table.
func DisplayResults(results []Candidate) {
	if len(results) == 0 {
		pterm.Info.Println("No axis candidates found")
		return
	}

	tableData := pterm.TableData{
		{"Offset", "Length", "Bits", "Min", "Max", "Variance", "Preview"},
	}

	for _, result := range results {
		tableData = append(tableData, []string{
			fmt.Sprintf("0x%06X", result.Offset),
			fmt.Sprintf("%d", result.Length),
			fmt.Sprintf("%d", result.BitWidth),
			fmt.Sprintf("%.0f", result.Min),
			fmt.Sprintf("%.0f", result.Max),
			fmt.Sprintf("%.1f", result.Variance),
			preview(result.Values),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
		pterm.Error.Printf("Could not render results: %v\n", err)
	}
	pterm.Info.Printf("Found %d axis candidate(s)\n", len(results))
}

func preview(values []float64) string {
	s := ""
	for i := 0; i < 4 && i < len(values); i++ {
		s += fmt.Sprintf("%.0f ", values[i])
	}
	return s + "..."
}
