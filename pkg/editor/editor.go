package editor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tosih/map-rescaler/pkg/codec"
	"github.com/tosih/map-rescaler/pkg/models"
)

// Write is one table or axis to encode during a commit. Exactly one of
// Values (2-D tables) or Axis (1-D axes) is used, chosen by Def.Shape.
type Write struct {
	Def    models.TableDefinition
	Layout models.Layout
	Values [][]float64
	Axis   models.Axis
}

// TableWrite returns a Write for a 2-D table using the definition's layout.
func TableWrite(def models.TableDefinition, values [][]float64) Write {
	return Write{Def: def, Layout: def.Layout, Values: values}
}

// AxisWrite returns a Write for a 1-D axis.
func AxisWrite(def models.TableDefinition, axis models.Axis) Write {
	return Write{Def: def, Axis: axis}
}

func (w Write) apply(image []byte) error {
	if w.Def.Shape.IsAxis() {
		return codec.EncodeAxis(image, w.Def, w.Axis)
	}
	return codec.EncodeTable(image, w.Def, w.Layout, w.Values)
}

// Commit encodes every write into a copy of image and returns the copy.
// If any write fails, the original image is returned unchanged together
// with a *models.BatchError naming every failed table.
func Commit(image []byte, writes ...Write) ([]byte, error) {
	if err := checkOverlap(writes); err != nil {
		return image, &models.BatchError{Failures: []*models.TableError{err}}
	}

	work := make([]byte, len(image))
	copy(work, image)

	var failures []*models.TableError
	for _, w := range writes {
		if err := w.apply(work); err != nil {
			failures = append(failures, asTableError(w.Def.Name, err))
		}
	}
	if len(failures) > 0 {
		return image, &models.BatchError{Failures: failures}
	}
	return work, nil
}

func asTableError(name string, err error) *models.TableError {
	var terr *models.TableError
	if errors.As(err, &terr) {
		return terr
	}
	return models.NewTableError(name, err, "")
}

// checkOverlap rejects batches where two writes target the same bytes.
func checkOverlap(writes []Write) *models.TableError {
	sorted := make([]Write, len(writes))
	copy(sorted, writes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Def.Offset < sorted[j].Def.Offset
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1].Def, sorted[i].Def
		if cur.Offset < prev.End() {
			return models.NewTableError(cur.Name, models.ErrInvalidDefinition,
				"overlaps %s at 0x%X", prev.Name, cur.Offset)
		}
	}
	return nil
}

// CreateBackup copies filename to a timestamped sibling, or into dir when
// dir is not empty, and returns the backup path.
func CreateBackup(filename, dir string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("editor: could not read %q: %w", filename, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupName := filename + ".backup_" + timestamp
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("editor: could not create backup dir: %w", err)
		}
		backupName = filepath.Join(dir, filepath.Base(backupName))
	}

	if err := os.WriteFile(backupName, data, 0644); err != nil {
		return "", fmt.Errorf("editor: could not write backup: %w", err)
	}
	return backupName, nil
}

// SaveImage writes data to filename through a temporary file in the same
// directory, so a failed write never truncates an existing image.
func SaveImage(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".tmp*")
	if err != nil {
		return fmt.Errorf("editor: could not create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("editor: could not write %q: %w", filename, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("editor: could not chmod %q: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("editor: could not close %q: %w", filename, err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("editor: could not replace %q: %w", filename, err)
	}
	return nil
}
