package models

import (
	"fmt"
	"math"
	"strings"
)

// Layout is the physical storage order of a 2-D table inside the image.
type Layout int

const (
	// RowMajor stores one run of Cols values per logical row.
	RowMajor Layout = iota
	// Transposed stores one run of Rows values per logical column.
	// Some firmware tools call this an "inverse" map.
	Transposed
)

func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "row_major"
	case Transposed:
		return "transposed"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout accepts the names used in catalog files.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "row_major", "rowmajor", "row-major":
		return RowMajor, nil
	case "transposed", "inverse", "column_major", "col_major":
		return Transposed, nil
	}
	return 0, fmt.Errorf("unknown layout %q", s)
}

// ScalingKind selects the algebraic form of a Scaling.
type ScalingKind string

const (
	ScaleIdentity ScalingKind = "identity"
	ScaleLinear   ScalingKind = "linear"
)

// Scaling converts between raw stored integers and engineering units.
//
//	physical = raw*Factor + Offset
//
// Encode is derived from the descriptor, so a definition can never carry
// a decode/encode pair that disagree.
type Scaling struct {
	Kind   ScalingKind
	Factor float64
	Offset float64
}

// Identity returns the scaling that leaves raw values untouched.
func Identity() Scaling {
	return Scaling{Kind: ScaleIdentity, Factor: 1}
}

// Linear returns physical = raw*factor.
func Linear(factor float64) Scaling {
	return Scaling{Kind: ScaleLinear, Factor: factor}
}

// Decode converts a raw value to engineering units.
func (s Scaling) Decode(raw float64) float64 {
	if s.Kind == ScaleIdentity {
		return raw
	}
	return raw*s.Factor + s.Offset
}

// Encode converts an engineering value back to the raw domain. The result
// is not yet truncated or range checked.
func (s Scaling) Encode(v float64) float64 {
	if s.Kind == ScaleIdentity {
		return v
	}
	return (v - s.Offset) / s.Factor
}

// Step is the engineering-unit size of one raw count.
func (s Scaling) Step() float64 {
	if s.Kind == ScaleIdentity {
		return 1
	}
	return math.Abs(s.Factor)
}

// Validate checks that the descriptor is invertible.
func (s Scaling) Validate() error {
	switch s.Kind {
	case ScaleIdentity:
		return nil
	case ScaleLinear:
		if s.Factor == 0 || math.IsNaN(s.Factor) || math.IsInf(s.Factor, 0) {
			return fmt.Errorf("linear factor must be finite and non-zero, got %v", s.Factor)
		}
		if math.IsNaN(s.Offset) || math.IsInf(s.Offset, 0) {
			return fmt.Errorf("linear offset must be finite, got %v", s.Offset)
		}
		return nil
	}
	return fmt.Errorf("unknown scaling kind %q", s.Kind)
}

func (s Scaling) String() string {
	switch s.Kind {
	case ScaleIdentity:
		return "x"
	case ScaleLinear:
		if s.Offset == 0 {
			return fmt.Sprintf("x*%g", s.Factor)
		}
		return fmt.Sprintf("x*%g%+g", s.Factor, s.Offset)
	}
	return string(s.Kind)
}

// Shape is the declared size of a table. Cols == 0 marks a 1-D axis of
// length Rows.
type Shape struct {
	Rows int
	Cols int
}

// AxisShape returns the shape of a 1-D axis of length n.
func AxisShape(n int) Shape { return Shape{Rows: n} }

// IsAxis reports whether the shape is one-dimensional.
func (s Shape) IsAxis() bool { return s.Cols == 0 }

// Count returns the number of stored elements.
func (s Shape) Count() int {
	if s.IsAxis() {
		return s.Rows
	}
	return s.Rows * s.Cols
}

func (s Shape) String() string {
	if s.IsAxis() {
		return fmt.Sprintf("%d", s.Rows)
	}
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

// TableDefinition locates one table or axis inside a firmware image.
type TableDefinition struct {
	Name        string
	Offset      int64
	Shape       Shape
	BitWidth    int
	Scaling     Scaling
	Layout      Layout
	RowAxis     string // companion axis labelling rows, 2-D only
	ColAxis     string // companion axis labelling columns, 2-D only
	Unit        string
	Description string
}

// Step returns the byte stride of one stored value.
func (d TableDefinition) Step() int { return d.BitWidth / 8 }

// ByteLen returns the number of bytes the table occupies.
func (d TableDefinition) ByteLen() int64 {
	return int64(d.Shape.Count()) * int64(d.Step())
}

// End returns the first byte offset past the table.
func (d TableDefinition) End() int64 { return d.Offset + d.ByteLen() }

// MaxRaw returns the largest raw value representable in BitWidth bits.
func (d TableDefinition) MaxRaw() float64 {
	return float64(uint64(1)<<uint(d.BitWidth) - 1)
}

// Axis is an ordered sequence of engineering-unit labels.
type Axis []float64

// Clone returns a copy of the axis.
func (a Axis) Clone() Axis {
	if a == nil {
		return nil
	}
	out := make(Axis, len(a))
	copy(out, a)
	return out
}

// String renders the axis as one space separated line.
func (a Axis) String() string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return strings.Join(parts, " ")
}

// Table is a decoded 2-D grid with its row and column labels.
type Table struct {
	Name    string
	Unit    string
	RowAxis Axis
	ColAxis Axis
	Values  [][]float64
}

// Rows returns the number of logical rows.
func (t Table) Rows() int { return len(t.Values) }

// Cols returns the number of logical columns.
func (t Table) Cols() int {
	if len(t.Values) == 0 {
		return 0
	}
	return len(t.Values[0])
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := t
	out.RowAxis = t.RowAxis.Clone()
	out.ColAxis = t.ColAxis.Clone()
	out.Values = CloneGrid(t.Values)
	return out
}

// MinMax returns the smallest and largest value in the table.
func (t Table) MinMax() (float64, float64) {
	return FindMinMax(t.Values)
}

// CloneGrid deep copies a grid of values.
func CloneGrid(g [][]float64) [][]float64 {
	if g == nil {
		return nil
	}
	out := make([][]float64, len(g))
	for i, row := range g {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}

// FindMinMax finds the minimum and maximum values in a grid. An empty grid
// yields (0, 0).
func FindMinMax(data [][]float64) (float64, float64) {
	var (
		min, max float64
		seen     bool
	)
	for _, row := range data {
		for _, val := range row {
			if !seen {
				min, max, seen = val, val, true
				continue
			}
			if val < min {
				min = val
			}
			if val > max {
				max = val
			}
		}
	}
	return min, max
}

// Image is a firmware file held in memory. The session owning it is the
// only writer.
type Image struct {
	Name string
	Data []byte
}

// Clone returns an independent copy of the image.
func (img *Image) Clone() *Image {
	data := make([]byte, len(img.Data))
	copy(data, img.Data)
	return &Image{Name: img.Name, Data: data}
}

// Len returns the image size in bytes.
func (img *Image) Len() int { return len(img.Data) }

// Decoded holds every table and axis of a variant as read from one image.
// It is never updated in place: a new image means a new decode.
type Decoded struct {
	Variant Variant
	Tables  map[string]Table
	Axes    map[string]Axis
}
