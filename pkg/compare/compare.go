// Package compare diffs the tables of one variant between two images.
package compare

import (
	"fmt"
	"math"
	"strings"

	"github.com/pterm/pterm"
	"gonum.org/v1/gonum/floats"

	"github.com/tosih/map-rescaler/pkg/models"
	"github.com/tosih/map-rescaler/pkg/reader"
)

// TableDiff is the cell-wise difference b - a of one map.
type TableDiff struct {
	Name    string
	Unit    string
	RowAxis models.Axis
	ColAxis models.Axis
	Diff    [][]float64

	Changed     int
	Cells       int
	MeanChange  float64 // over changed cells only
	MaxIncrease float64
	MaxDecrease float64
}

// AxisDiff reports an axis whose labels differ between the two images.
type AxisDiff struct {
	Name   string
	Before models.Axis
	After  models.Axis
}

// Result is the comparison of every table of a variant.
type Result struct {
	Variant string
	Tables  []TableDiff
	Axes    []AxisDiff
}

// Changed reports whether any map cell or axis label differs.
func (r Result) Changed() bool {
	if len(r.Axes) > 0 {
		return true
	}
	for _, t := range r.Tables {
		if t.Changed > 0 {
			return true
		}
	}
	return false
}

// Variant decodes v from both images and diffs every table.
func Variant(a, b []byte, v models.Variant) (*Result, error) {
	decA, err := reader.DecodeVariant(a, v)
	if err != nil {
		return nil, fmt.Errorf("compare: first image: %w", err)
	}
	decB, err := reader.DecodeVariant(b, v)
	if err != nil {
		return nil, fmt.Errorf("compare: second image: %w", err)
	}
	return Decoded(decA, decB), nil
}

// Decoded diffs two decodes of the same variant.
func Decoded(a, b *models.Decoded) *Result {
	res := &Result{Variant: a.Variant.Name}
	for _, name := range a.Variant.TableNames() {
		if axisA, ok := a.Axes[name]; ok {
			axisB := b.Axes[name]
			if !floats.Equal(axisA, axisB) {
				res.Axes = append(res.Axes, AxisDiff{Name: name, Before: axisA, After: axisB})
			}
			continue
		}
		ta, tb := a.Tables[name], b.Tables[name]
		res.Tables = append(res.Tables, diffTable(ta, tb))
	}
	return res
}

func diffTable(a, b models.Table) TableDiff {
	d := TableDiff{
		Name:    a.Name,
		Unit:    a.Unit,
		RowAxis: b.RowAxis,
		ColAxis: b.ColAxis,
		Diff:    make([][]float64, len(a.Values)),
	}

	var changed []float64
	for i := range a.Values {
		d.Diff[i] = make([]float64, len(a.Values[i]))
		floats.SubTo(d.Diff[i], b.Values[i], a.Values[i])
		for _, v := range d.Diff[i] {
			d.Cells++
			if v != 0 {
				changed = append(changed, v)
			}
		}
	}

	d.Changed = len(changed)
	if d.Changed > 0 {
		d.MeanChange = floats.Sum(changed) / float64(d.Changed)
		d.MaxIncrease = math.Max(0, floats.Max(changed))
		d.MaxDecrease = math.Min(0, floats.Min(changed))
	}
	return d
}

// Display prints the comparison result.
func Display(res *Result) {
	pterm.DefaultHeader.WithFullWidth().Println("Image Comparison - " + res.Variant)

	for _, ax := range res.Axes {
		pterm.Warning.Printf("Axis %s changed\n", ax.Name)
		pterm.Printf("  before: %s\n  after:  %s\n", ax.Before, ax.After)
	}

	for _, d := range res.Tables {
		pterm.Println()
		pterm.DefaultSection.Printf("Comparing: %s\n", d.Name)
		if d.Changed == 0 {
			pterm.Success.Println("No differences")
			continue
		}

		pterm.Info.Printf("Changed cells: %d / %d (%.1f%%)\n",
			d.Changed, d.Cells, float64(d.Changed)/float64(d.Cells)*100)
		pterm.Info.Printf("Average change: %.2f %s\n", d.MeanChange, d.Unit)
		pterm.Info.Printf("Max increase: %.2f %s\n", d.MaxIncrease, d.Unit)
		pterm.Info.Printf("Max decrease: %.2f %s\n", d.MaxDecrease, d.Unit)

		pterm.Println("\nDifference Map (second - first):")
		pterm.DefaultBox.Println(BuildDiffString(d))
	}
}

// BuildDiffString draws the difference grid as arrows scaled to the
// largest absolute change.
func BuildDiffString(d TableDiff) string {
	var result strings.Builder

	maxAbs := 0.0
	for _, row := range d.Diff {
		for _, v := range row {
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}

	result.WriteString("          |")
	for j := range d.ColAxis {
		result.WriteString(fmt.Sprintf("%-6.5g", d.ColAxis[j]))
	}
	result.WriteString("\n")
	result.WriteString("  ------- |" + strings.Repeat("-", len(d.ColAxis)*6) + "\n")

	for i, row := range d.Diff {
		lbl := "?"
		if i < len(d.RowAxis) {
			lbl = fmt.Sprintf("%.5g", d.RowAxis[i])
		}
		result.WriteString(fmt.Sprintf(" %8s |", lbl))
		for _, v := range row {
			result.WriteString(getDiffSymbol(v, maxAbs) + "   ")
		}
		result.WriteString("\n")
	}

	// Legend
	result.WriteString("\nLegend: ")
	result.WriteString(pterm.FgBlue.Sprint("▼▼") + " Large Decrease  ")
	result.WriteString(pterm.FgCyan.Sprint("▼ ") + " Small Decrease  ")
	result.WriteString(pterm.FgGray.Sprint("··") + " No Change  ")
	result.WriteString(pterm.FgYellow.Sprint("▲ ") + " Small Increase  ")
	result.WriteString(pterm.FgRed.Sprint("▲▲") + " Large Increase")

	return result.String()
}

func getDiffSymbol(val, maxAbs float64) string {
	if val == 0 || maxAbs == 0 {
		return pterm.FgGray.Sprint("··")
	}

	normalized := val / maxAbs

	switch {
	case normalized < -0.5:
		return pterm.FgBlue.Sprint("▼▼")
	case normalized < -0.1:
		return pterm.FgCyan.Sprint("▼ ")
	case normalized > 0.5:
		return pterm.FgRed.Sprint("▲▲")
	case normalized > 0.1:
		return pterm.FgYellow.Sprint("▲ ")
	}
	return pterm.FgGray.Sprint("· ")
}
