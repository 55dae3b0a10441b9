package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tosih/map-rescaler/pkg/codec"
	"github.com/tosih/map-rescaler/pkg/models"
)

// LoadImage reads a firmware file into memory.
func LoadImage(filename string) (*models.Image, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reader: could not read %q: %w", filename, err)
	}
	return &models.Image{Name: filepath.Base(filename), Data: data}, nil
}

// DecodeVariant decodes every table and axis of v from image. Tables are
// independent reads and are decoded concurrently. Any structural error
// aborts the whole decode and no partial result is returned.
func DecodeVariant(image []byte, v models.Variant) (*models.Decoded, error) {
	var (
		grp    errgroup.Group
		mu     sync.Mutex
		tables = make(map[string][][]float64)
		axes   = make(map[string]models.Axis)
	)

	for _, name := range v.TableNames() {
		def := v.Tables[name]
		grp.Go(func() error {
			if def.Shape.IsAxis() {
				axis, err := codec.DecodeAxis(image, def)
				if err != nil {
					return err
				}
				mu.Lock()
				axes[def.Name] = axis
				mu.Unlock()
				return nil
			}

			values, err := codec.DecodeTable(image, def, def.Layout)
			if err != nil {
				return err
			}
			mu.Lock()
			tables[def.Name] = values
			mu.Unlock()
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("reader: could not decode variant %s: %w", v.Name, err)
	}

	dec := &models.Decoded{
		Variant: v,
		Tables:  make(map[string]models.Table, len(tables)),
		Axes:    axes,
	}
	for name, values := range tables {
		def := v.Tables[name]
		dec.Tables[name] = models.Table{
			Name:    name,
			Unit:    def.Unit,
			RowAxis: labels(axes, def.RowAxis, def.Shape.Rows),
			ColAxis: labels(axes, def.ColAxis, def.Shape.Cols),
			Values:  values,
		}
	}
	return dec, nil
}

// labels returns the named companion axis, or the indices 0..n-1 when the
// table declares none.
func labels(axes map[string]models.Axis, name string, n int) models.Axis {
	if axis, ok := axes[name]; ok {
		return axis.Clone()
	}
	out := make(models.Axis, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
