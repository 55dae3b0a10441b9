// Package codec converts fixed-layout calibration tables between raw
// firmware bytes and engineering-unit values.
//
// Values are unsigned 8 or 16 bit integers stored little-endian at
// def.Offset + index*(bitWidth/8). A row-major table of shape (R, C) is R
// runs of C values; a transposed table is C runs of R values and is
// returned transposed, so callers always see an R x C grid.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tosih/map-rescaler/pkg/models"
)

// snapTolerance absorbs the float error of decode followed by encode so a
// raw value survives the round trip before truncation.
const snapTolerance = 1e-6

// DecodeAxis reads a 1-D axis in on-disk order.
func DecodeAxis(image []byte, def models.TableDefinition) (models.Axis, error) {
	if err := checkBounds(image, def); err != nil {
		return nil, err
	}
	n := def.Shape.Count()
	axis := make(models.Axis, n)
	for i := range axis {
		axis[i] = def.Scaling.Decode(float64(readRaw(image, def, i)))
	}
	return axis, nil
}

// DecodeTable reads a 2-D table stored with the given layout and returns it
// as def.Shape.Rows x def.Shape.Cols.
func DecodeTable(image []byte, def models.TableDefinition, layout models.Layout) ([][]float64, error) {
	if def.Shape.IsAxis() {
		return nil, models.NewTableError(def.Name, models.ErrShapeMismatch, "definition is 1-D (%s)", def.Shape)
	}
	if err := checkBounds(image, def); err != nil {
		return nil, err
	}
	if err := checkLayout(def, layout); err != nil {
		return nil, err
	}

	rows, cols := def.Shape.Rows, def.Shape.Cols
	data := make([][]float64, rows)
	for r := range data {
		data[r] = make([]float64, cols)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			raw := readRaw(image, def, index(layout, rows, cols, r, c))
			data[r][c] = def.Scaling.Decode(float64(raw))
		}
	}
	return data, nil
}

// EncodeTable writes values into image with the given layout. Every value is
// converted and checked before the first byte is written: on error the
// image is left untouched and the error names the offending cell.
func EncodeTable(image []byte, def models.TableDefinition, layout models.Layout, values [][]float64) error {
	if def.Shape.IsAxis() {
		return models.NewTableError(def.Name, models.ErrShapeMismatch, "definition is 1-D (%s)", def.Shape)
	}
	if err := checkBounds(image, def); err != nil {
		return err
	}
	if err := checkLayout(def, layout); err != nil {
		return err
	}
	rows, cols := def.Shape.Rows, def.Shape.Cols
	if len(values) != rows {
		return models.NewTableError(def.Name, models.ErrShapeMismatch, "got %d rows, want %d", len(values), rows)
	}

	raws := make([]uint16, rows*cols)
	for r, row := range values {
		if len(row) != cols {
			return &models.TableError{
				Table: def.Name, Row: r, Col: -1, Kind: models.ErrShapeMismatch,
				Detail: "row has wrong length",
			}
		}
		for c, v := range row {
			raw, ok := toRaw(def, v)
			if !ok {
				return &models.TableError{
					Table: def.Name, Row: r, Col: c, Value: v, Kind: models.ErrValueEncoding,
					Detail: encodeDetail(def, v),
				}
			}
			raws[index(layout, rows, cols, r, c)] = raw
		}
	}

	for i, raw := range raws {
		writeRaw(image, def, i, raw)
	}
	return nil
}

// EncodeAxis writes a 1-D axis with the same all-or-nothing guarantee as
// EncodeTable. Row in a returned TableError is the axis index.
func EncodeAxis(image []byte, def models.TableDefinition, axis models.Axis) error {
	if err := checkBounds(image, def); err != nil {
		return err
	}
	if len(axis) != def.Shape.Count() {
		return models.NewTableError(def.Name, models.ErrShapeMismatch, "got %d values, want %d", len(axis), def.Shape.Count())
	}

	raws := make([]uint16, len(axis))
	for i, v := range axis {
		raw, ok := toRaw(def, v)
		if !ok {
			return &models.TableError{
				Table: def.Name, Row: i, Col: -1, Value: v, Kind: models.ErrValueEncoding,
				Detail: encodeDetail(def, v),
			}
		}
		raws[i] = raw
	}
	for i, raw := range raws {
		writeRaw(image, def, i, raw)
	}
	return nil
}

// RawValue converts an engineering value to its stored integer, reporting
// false when the value is not finite or does not fit the bit width.
func RawValue(def models.TableDefinition, v float64) (uint16, bool) {
	return toRaw(def, v)
}

// index maps a logical cell to its position in the physical value sequence.
func index(layout models.Layout, rows, cols, r, c int) int {
	if layout == models.Transposed {
		return c*rows + r
	}
	return r*cols + c
}

func checkLayout(def models.TableDefinition, layout models.Layout) error {
	switch layout {
	case models.RowMajor, models.Transposed:
		return nil
	}
	return models.NewTableError(def.Name, models.ErrInvalidDefinition, "unknown layout %v", layout)
}

func checkBounds(image []byte, def models.TableDefinition) error {
	if def.BitWidth != 8 && def.BitWidth != 16 {
		return models.NewTableError(def.Name, models.ErrUnsupportedBitWidth, "got %d bits", def.BitWidth)
	}
	// Offset+ByteLen can wrap for large offsets, so compare against the remainder.
	size := int64(len(image))
	if def.Offset < 0 || def.Offset > size || def.ByteLen() > size-def.Offset {
		return models.NewTableError(def.Name, models.ErrOutOfBounds,
			"%d bytes at 0x%X exceed image of %d bytes", def.ByteLen(), def.Offset, len(image))
	}
	return nil
}

func readRaw(image []byte, def models.TableDefinition, i int) uint16 {
	off := int(def.Offset) + i*def.Step()
	if def.BitWidth == 8 {
		return uint16(image[off])
	}
	return binary.LittleEndian.Uint16(image[off:])
}

func writeRaw(image []byte, def models.TableDefinition, i int, raw uint16) {
	off := int(def.Offset) + i*def.Step()
	if def.BitWidth == 8 {
		image[off] = uint8(raw)
		return
	}
	binary.LittleEndian.PutUint16(image[off:], raw)
}

func toRaw(def models.TableDefinition, v float64) (uint16, bool) {
	x := def.Scaling.Encode(v)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	if r := math.Round(x); math.Abs(x-r) < snapTolerance {
		x = r
	}
	if x < 0 || x > def.MaxRaw() {
		return 0, false
	}
	return uint16(math.Trunc(x)), true
}

func encodeDetail(def models.TableDefinition, v float64) string {
	x := def.Scaling.Encode(v)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "encoded value is not finite"
	}
	return fmt.Sprintf("encoded value %g outside [0, %g] for %d bits", x, def.MaxRaw(), def.BitWidth)
}
