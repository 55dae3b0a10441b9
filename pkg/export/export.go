// Package export writes decoded tables to CSV and reads axes and tables
// back from text.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/tosih/map-rescaler/pkg/models"
)

const cornerCell = "row\\col"

// WriteTableCSV writes t as CSV: metadata comment records, a header of
// column labels, then one record per row led by its row label.
func WriteTableCSV(w io.Writer, def models.TableDefinition, t models.Table) error {
	writer := csv.NewWriter(w)

	meta := [][]string{
		{"# " + t.Name},
		{fmt.Sprintf("# Offset: 0x%06X", def.Offset)},
		{"# Size: " + def.Shape.String()},
		{"# Scaling: " + def.Scaling.String()},
		{"# Unit: " + t.Unit},
	}
	if err := writer.WriteAll(meta); err != nil {
		return fmt.Errorf("export: could not write %s: %w", t.Name, err)
	}

	header := append([]string{cornerCell}, lo.Map(t.ColAxis, formatCell)...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("export: could not write %s: %w", t.Name, err)
	}
	for i, row := range t.Values {
		label := strconv.Itoa(i)
		if i < len(t.RowAxis) {
			label = formatCell(t.RowAxis[i], i)
		}
		if err := writer.Write(append([]string{label}, lo.Map(row, formatCell)...)); err != nil {
			return fmt.Errorf("export: could not write %s: %w", t.Name, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("export: could not write %s: %w", t.Name, err)
	}
	return nil
}

// ReadTableCSV reads a table written by WriteTableCSV. Comment records are
// skipped and the first record is the column header.
func ReadTableCSV(r io.Reader) (models.Table, error) {
	var t models.Table

	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return t, fmt.Errorf("export: could not read csv: %w", err)
	}
	records = lo.Filter(records, func(rec []string, _ int) bool {
		return len(rec) > 1 || (len(rec) == 1 && rec[0] != "")
	})
	if len(records) < 2 {
		return t, fmt.Errorf("%w: csv holds no table", models.ErrShapeMismatch)
	}

	header := records[0]
	if header[0] != cornerCell {
		return t, fmt.Errorf("%w: csv header must start with %q", models.ErrShapeMismatch, cornerCell)
	}
	if t.ColAxis, err = parseCells(header[1:]); err != nil {
		return t, err
	}

	cols := len(t.ColAxis)
	for i, rec := range records[1:] {
		if len(rec) != cols+1 {
			return t, fmt.Errorf("%w: row %d has %d values, want %d",
				models.ErrShapeMismatch, i, len(rec)-1, cols)
		}
		cells, err := parseCells(rec)
		if err != nil {
			return t, err
		}
		t.RowAxis = append(t.RowAxis, cells[0])
		t.Values = append(t.Values, cells[1:])
	}
	return t, nil
}

// ExportVariant writes one CSV file per named table into dir, or every
// map of the decode when names is empty. It returns the files written.
func ExportVariant(dec *models.Decoded, dir string, names ...string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("export: could not create %q: %w", dir, err)
	}
	if len(names) == 0 {
		names = dec.Variant.Maps()
	}

	var files []string
	for _, name := range names {
		t, ok := dec.Tables[name]
		if !ok {
			return files, fmt.Errorf("%w: %s is not a map of %s",
				models.ErrInvalidDefinition, name, dec.Variant.Name)
		}
		path := filepath.Join(dir, strings.ToLower(dec.Variant.Name)+"_"+name+".csv")
		if err := writeFile(path, dec.Variant.Tables[name], t); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func writeFile(path string, def models.TableDefinition, t models.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: could not create %q: %w", path, err)
	}
	defer f.Close()

	if err := WriteTableCSV(f, def, t); err != nil {
		return err
	}
	return f.Close()
}

// ParseAxis reads axis values separated by commas, semicolons or white
// space. Lines starting with '#' are ignored.
func ParseAxis(r io.Reader) (models.Axis, error) {
	var axis models.Axis

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t'
		})
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: %q is not a number", models.ErrInvalidAxis, len(axis), f)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: entry %d is not finite", models.ErrInvalidAxis, len(axis))
			}
			axis = append(axis, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("export: could not read axis: %w", err)
	}
	if len(axis) == 0 {
		return nil, fmt.Errorf("%w: no values", models.ErrInvalidAxis)
	}
	return axis, nil
}

// ParseAxisString is ParseAxis over a string, for flag values.
func ParseAxisString(s string) (models.Axis, error) {
	return ParseAxis(strings.NewReader(s))
}

func formatCell(v float64, _ int) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseCells(cells []string) ([]float64, error) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cell %d: %q is not a number", models.ErrValueEncoding, i, c)
		}
		out[i] = v
	}
	return out, nil
}
