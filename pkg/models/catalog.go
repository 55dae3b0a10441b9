package models

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Variant is one calibration layout: the named tables of a firmware build.
type Variant struct {
	Name        string
	Description string
	Tables      map[string]TableDefinition

	// Primary is the table whose row axis the caller replaces.
	Primary string
	// Secondary is rescaled against the same new axis and receives the
	// suggested axis derived from Primary.
	Secondary string
}

// Table returns the named definition.
func (v Variant) Table(name string) (TableDefinition, bool) {
	def, ok := v.Tables[name]
	return def, ok
}

// TableNames returns the variant's table names in offset order.
func (v Variant) TableNames() []string {
	names := lo.Keys(v.Tables)
	slices.SortFunc(names, func(a, b string) int {
		da, db := v.Tables[a], v.Tables[b]
		if da.Offset != db.Offset {
			if da.Offset < db.Offset {
				return -1
			}
			return 1
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return names
}

// Maps returns the names of the 2-D tables in offset order.
func (v Variant) Maps() []string {
	return lo.Filter(v.TableNames(), func(name string, _ int) bool {
		return !v.Tables[name].Shape.IsAxis()
	})
}

// Validate checks every definition and the cross references between them.
// Image bounds are checked at decode and encode time, not here.
func (v Variant) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("%w: variant without a name", ErrInvalidDefinition)
	}
	if len(v.Tables) == 0 {
		return fmt.Errorf("%w: variant %s has no tables", ErrInvalidDefinition, v.Name)
	}
	for name, def := range v.Tables {
		if def.Name != name {
			return fmt.Errorf("%w: %s/%s: definition named %q", ErrInvalidDefinition, v.Name, name, def.Name)
		}
		if err := def.Validate(); err != nil {
			return fmt.Errorf("%s: %w", v.Name, err)
		}
		if def.Shape.IsAxis() {
			continue
		}
		if err := v.checkAxis(def, def.RowAxis, def.Shape.Rows); err != nil {
			return err
		}
		if err := v.checkAxis(def, def.ColAxis, def.Shape.Cols); err != nil {
			return err
		}
	}
	for _, name := range []string{v.Primary, v.Secondary} {
		if name == "" {
			continue
		}
		def, ok := v.Tables[name]
		if !ok || def.Shape.IsAxis() {
			return fmt.Errorf("%w: %s: %q is not a 2-D table", ErrInvalidDefinition, v.Name, name)
		}
		if def.RowAxis == "" {
			return fmt.Errorf("%w: %s/%s: rescaled table needs a row axis", ErrInvalidDefinition, v.Name, name)
		}
	}
	if v.Secondary != "" {
		if v.Primary == "" {
			return fmt.Errorf("%w: %s: secondary table without a primary", ErrInvalidDefinition, v.Name)
		}
		p, s := v.Tables[v.Primary], v.Tables[v.Secondary]
		if p.Shape.Rows != s.Shape.Rows {
			return fmt.Errorf("%w: %s: %s has %d rows, %s has %d", ErrInvalidDefinition,
				v.Name, p.Name, p.Shape.Rows, s.Name, s.Shape.Rows)
		}
	}
	return nil
}

func (v Variant) checkAxis(def TableDefinition, axis string, n int) error {
	if axis == "" {
		return nil
	}
	ax, ok := v.Tables[axis]
	if !ok {
		return fmt.Errorf("%w: %s/%s: unknown axis %q", ErrInvalidDefinition, v.Name, def.Name, axis)
	}
	if !ax.Shape.IsAxis() || ax.Shape.Rows != n {
		return fmt.Errorf("%w: %s/%s: axis %s has shape %s, want %d", ErrInvalidDefinition,
			v.Name, def.Name, axis, ax.Shape, n)
	}
	return nil
}

// Validate checks the structural fields of a single definition.
func (d TableDefinition) Validate() error {
	if d.Offset < 0 {
		return NewTableError(d.Name, ErrInvalidDefinition, "negative offset %d", d.Offset)
	}
	if d.BitWidth != 8 && d.BitWidth != 16 {
		return NewTableError(d.Name, ErrUnsupportedBitWidth, "got %d bits", d.BitWidth)
	}
	if d.Shape.Rows <= 0 || d.Shape.Cols < 0 {
		return NewTableError(d.Name, ErrInvalidDefinition, "invalid shape %s", d.Shape)
	}
	if err := d.Scaling.Validate(); err != nil {
		return NewTableError(d.Name, ErrInvalidDefinition, "%v", err)
	}
	return nil
}

// Catalog maps variant names to their definitions. It is built once and
// never mutated afterwards.
type Catalog struct {
	variants map[string]Variant
	names    []string
}

// NewCatalog validates the variants and returns a catalog over them.
func NewCatalog(variants ...Variant) (*Catalog, error) {
	c := &Catalog{variants: make(map[string]Variant, len(variants))}
	for _, v := range variants {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.variants[v.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate variant %q", ErrInvalidDefinition, v.Name)
		}
		c.variants[v.Name] = v
	}
	c.names = lo.Keys(c.variants)
	slices.Sort(c.names)
	return c, nil
}

// Names returns the variant names in lexical order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Variant looks up a variant by name.
func (c *Catalog) Variant(name string) (Variant, error) {
	v, ok := c.variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// Len returns the number of variants.
func (c *Catalog) Len() int { return len(c.variants) }
