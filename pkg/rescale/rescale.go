// Package rescale recomputes table values when the axis labelling their
// rows is replaced.
//
// Each row is assumed to scale linearly with its axis value, so a row is
// multiplied by newAxis[i]/currentAxis[i]. This is a proportional policy,
// not an interpolation.
package rescale

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tosih/map-rescaler/pkg/models"
)

// Table returns values rescaled row by row from currentAxis to newAxis:
//
//	result[i][j] = values[i][j] * (newAxis[i] / currentAxis[i])
//
// The ratio is taken first so that rescaling an axis onto itself is exact.
// No partial result is returned on error; the error names the row at fault,
// and the cell when a scaled value overflows.
func Table(name string, values [][]float64, currentAxis, newAxis models.Axis) ([][]float64, error) {
	if err := check(name, values, currentAxis, newAxis); err != nil {
		return nil, err
	}

	out := make([][]float64, len(values))
	for i, row := range values {
		ratio := newAxis[i] / currentAxis[i]
		out[i] = make([]float64, len(row))
		floats.ScaleTo(out[i], ratio, row)
		for j, v := range out[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &models.TableError{
					Table: name, Row: i, Col: j, Value: row[j], Kind: models.ErrInvalidAxis,
					Detail: fmt.Sprintf("scaling by %g overflows", ratio),
				}
			}
		}
	}
	return out, nil
}

// SuggestAxis returns the mean of each row: a heuristic axis for a related
// table, not a derived physical quantity.
func SuggestAxis(values [][]float64) models.Axis {
	axis := make(models.Axis, len(values))
	for i, row := range values {
		if len(row) == 0 {
			axis[i] = math.NaN()
			continue
		}
		axis[i] = stat.Mean(row, nil)
	}
	return axis
}

// Chain rescales values and derives the suggested axis from the result.
// A row whose mean overflows fails like an overflowing cell.
func Chain(name string, values [][]float64, currentAxis, newAxis models.Axis) ([][]float64, models.Axis, error) {
	out, err := Table(name, values, currentAxis, newAxis)
	if err != nil {
		return nil, nil, err
	}
	suggested := SuggestAxis(out)
	for i, v := range suggested {
		if len(out[i]) > 0 && math.IsInf(v, 0) {
			return nil, nil, &models.TableError{
				Table: name, Row: i, Col: -1, Value: v, Kind: models.ErrInvalidAxis,
				Detail: "suggested axis value overflows",
			}
		}
	}
	return out, suggested, nil
}

func check(name string, values [][]float64, currentAxis, newAxis models.Axis) error {
	if len(currentAxis) == 0 {
		return models.NewTableError(name, models.ErrInvalidAxis, "current axis is empty")
	}
	if len(newAxis) == 0 {
		return models.NewTableError(name, models.ErrInvalidAxis, "new axis is empty")
	}
	if len(currentAxis) != len(values) {
		return models.NewTableError(name, models.ErrShapeMismatch,
			"current axis has %d values, table has %d rows", len(currentAxis), len(values))
	}
	if len(newAxis) != len(values) {
		return models.NewTableError(name, models.ErrShapeMismatch,
			"new axis has %d values, table has %d rows", len(newAxis), len(values))
	}
	if len(values) > 0 {
		cols := len(values[0])
		for i, row := range values {
			if len(row) != cols {
				return &models.TableError{
					Table: name, Row: i, Col: -1, Kind: models.ErrShapeMismatch,
					Detail: "ragged table",
				}
			}
		}
	}

	allZero := true
	for _, v := range currentAxis {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return models.NewTableError(name, models.ErrInvalidAxis, "current axis is all zero")
	}
	for i, v := range currentAxis {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &models.TableError{
				Table: name, Row: i, Col: -1, Value: v, Kind: models.ErrInvalidAxis,
				Detail: "current axis value is not finite",
			}
		}
		if v == 0 {
			return &models.TableError{
				Table: name, Row: i, Col: -1, Value: v, Kind: models.ErrDivisionByZero,
				Detail: "current axis value is zero",
			}
		}
	}
	for i, v := range newAxis {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &models.TableError{
				Table: name, Row: i, Col: -1, Value: v, Kind: models.ErrInvalidAxis,
				Detail: "new axis value is not finite",
			}
		}
	}
	return nil
}
