// Package config loads the calibration catalog and tool settings from disk.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tosih/map-rescaler/pkg/models"
)

// catalogFile is the on-disk form of a catalog.
//
//	variants:
//	  - name: CNPNJM___T3A
//	    primary: airflow_map
//	    secondary: reference_torque_map
//	    tables:
//	      airflow_map:
//	        location: 0x255D1C
//	        size: [12, 16]
//	        bit: 16
//	        math: {kind: linear, factor: 0.042389562829}
//	        layout: transposed
//	        rows: airflow_torque_axis
//	        cols: airflow_rpm_axis
type catalogFile struct {
	Variants []variantFile `yaml:"variants"`
}

type variantFile struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Primary     string               `yaml:"primary"`
	Secondary   string               `yaml:"secondary"`
	Tables      map[string]tableFile `yaml:"tables"`
}

type tableFile struct {
	Location    *int64      `yaml:"location"`
	Size        []int       `yaml:"size"`
	Bit         int         `yaml:"bit"`
	Math        scalingFile `yaml:"math"`
	Layout      string      `yaml:"layout"`
	Rows        string      `yaml:"rows"`
	Cols        string      `yaml:"cols"`
	Unit        string      `yaml:"unit"`
	Description string      `yaml:"description"`
}

type scalingFile struct {
	Kind   string   `yaml:"kind"`
	Factor *float64 `yaml:"factor"`
	Offset float64  `yaml:"offset"`
}

// LoadCatalog reads and validates a YAML catalog file.
func LoadCatalog(path string) (*models.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: could not read catalog %q: %w", path, err)
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("config: invalid catalog %q: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog. Unknown fields are
// rejected so that typos in table keys surface at load time.
func ParseCatalog(raw []byte) (*models.Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("could not decode yaml: %w", err)
	}
	if len(f.Variants) == 0 {
		return nil, fmt.Errorf("%w: catalog declares no variants", models.ErrInvalidDefinition)
	}

	variants := make([]models.Variant, 0, len(f.Variants))
	for _, vf := range f.Variants {
		v, err := vf.variant()
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return models.NewCatalog(variants...)
}

func (vf variantFile) variant() (models.Variant, error) {
	v := models.Variant{
		Name:        vf.Name,
		Description: vf.Description,
		Primary:     vf.Primary,
		Secondary:   vf.Secondary,
		Tables:      make(map[string]models.TableDefinition, len(vf.Tables)),
	}
	for name, tf := range vf.Tables {
		def, err := tf.definition(name)
		if err != nil {
			return v, fmt.Errorf("%w: %s/%s: %v", models.ErrInvalidDefinition, vf.Name, name, err)
		}
		v.Tables[name] = def
	}
	return v, nil
}

func (tf tableFile) definition(name string) (models.TableDefinition, error) {
	def := models.TableDefinition{
		Name:        name,
		BitWidth:    tf.Bit,
		RowAxis:     tf.Rows,
		ColAxis:     tf.Cols,
		Unit:        tf.Unit,
		Description: tf.Description,
	}
	if tf.Location == nil {
		return def, fmt.Errorf("missing location")
	}
	def.Offset = *tf.Location

	switch len(tf.Size) {
	case 1:
		def.Shape = models.AxisShape(tf.Size[0])
	case 2:
		def.Shape = models.Shape{Rows: tf.Size[0], Cols: tf.Size[1]}
		if def.Shape.Cols <= 0 {
			return def, fmt.Errorf("invalid size %v", tf.Size)
		}
	default:
		return def, fmt.Errorf("size must be [length] or [rows, cols], got %v", tf.Size)
	}

	layout, err := models.ParseLayout(tf.Layout)
	if err != nil {
		return def, err
	}
	def.Layout = layout

	scaling, err := tf.Math.scaling()
	if err != nil {
		return def, err
	}
	def.Scaling = scaling
	return def, nil
}

func (sf scalingFile) scaling() (models.Scaling, error) {
	switch models.ScalingKind(sf.Kind) {
	case "", models.ScaleIdentity:
		if sf.Factor != nil || sf.Offset != 0 {
			if sf.Kind == "" {
				return linear(sf)
			}
			return models.Scaling{}, fmt.Errorf("identity scaling takes no factor or offset")
		}
		return models.Identity(), nil
	case models.ScaleLinear:
		return linear(sf)
	}
	return models.Scaling{}, fmt.Errorf("unknown scaling kind %q", sf.Kind)
}

func linear(sf scalingFile) (models.Scaling, error) {
	if sf.Factor == nil {
		return models.Scaling{}, fmt.Errorf("linear scaling needs a factor")
	}
	s := models.Scaling{Kind: models.ScaleLinear, Factor: *sf.Factor, Offset: sf.Offset}
	return s, s.Validate()
}
