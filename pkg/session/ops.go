// Package session exposes the caller-facing operations: list the known
// variants, decode one from an image, rescale it against a new axis and
// commit the accepted result into a copy of the image.
package session

import (
	"fmt"

	"github.com/tosih/map-rescaler/pkg/editor"
	"github.com/tosih/map-rescaler/pkg/models"
	"github.com/tosih/map-rescaler/pkg/reader"
	"github.com/tosih/map-rescaler/pkg/rescale"
)

// Proposal is the result of a rescale, ready to be shown and committed.
type Proposal struct {
	Variant string

	// NewAxis replaces the primary table's row axis.
	NewAxis models.Axis
	// Primary is the primary table rescaled onto NewAxis.
	Primary models.Table
	// SuggestedAxis is the row mean of Primary, proposed as the new row
	// axis of the secondary table.
	SuggestedAxis models.Axis
	// Secondary is the secondary table rescaled against its own row axis
	// with the same NewAxis. Nil when the variant declares none.
	Secondary *models.Table
}

// CommitOptions select which parts of a proposal are written.
type CommitOptions struct {
	// KeepSecondary leaves the secondary table and its row axis untouched.
	KeepSecondary bool
	// KeepSecondaryAxis writes the secondary values but not the suggested axis.
	KeepSecondaryAxis bool
}

// ListDefinitions returns the variant names of the catalog.
func ListDefinitions(c *models.Catalog) []string {
	return c.Names()
}

// Decode decodes every table of the named variant from image.
func Decode(c *models.Catalog, image []byte, variant string) (*models.Decoded, error) {
	v, err := c.Variant(variant)
	if err != nil {
		return nil, err
	}
	return reader.DecodeVariant(image, v)
}

// Rescale builds a proposal replacing the primary table's row axis with
// newAxis. The primary and secondary tables are each rescaled from their own
// current row axis to newAxis; the secondary is not derived from the
// suggested axis.
func Rescale(dec *models.Decoded, newAxis models.Axis) (*Proposal, error) {
	v := dec.Variant
	if v.Primary == "" {
		return nil, fmt.Errorf("%w: variant %s declares no primary table", models.ErrInvalidDefinition, v.Name)
	}
	primary, ok := dec.Tables[v.Primary]
	if !ok {
		return nil, fmt.Errorf("%w: %s was not decoded", models.ErrInvalidState, v.Primary)
	}

	values, suggested, err := rescale.Chain(primary.Name, primary.Values, primary.RowAxis, newAxis)
	if err != nil {
		return nil, err
	}

	p := &Proposal{
		Variant:       v.Name,
		NewAxis:       newAxis.Clone(),
		SuggestedAxis: suggested,
		Primary: models.Table{
			Name:    primary.Name,
			Unit:    primary.Unit,
			RowAxis: newAxis.Clone(),
			ColAxis: primary.ColAxis.Clone(),
			Values:  values,
		},
	}

	if v.Secondary == "" {
		return p, nil
	}
	secondary, ok := dec.Tables[v.Secondary]
	if !ok {
		return nil, fmt.Errorf("%w: %s was not decoded", models.ErrInvalidState, v.Secondary)
	}
	values, err = rescale.Table(secondary.Name, secondary.Values, secondary.RowAxis, newAxis)
	if err != nil {
		return nil, err
	}
	p.Secondary = &models.Table{
		Name:    secondary.Name,
		Unit:    secondary.Unit,
		RowAxis: suggested.Clone(),
		ColAxis: secondary.ColAxis.Clone(),
		Values:  values,
	}
	return p, nil
}

// Writes lists the table and axis writes a commit of p performs.
func Writes(v models.Variant, p *Proposal, opts CommitOptions) ([]editor.Write, error) {
	primary, ok := v.Table(v.Primary)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no table %q", models.ErrInvalidDefinition, v.Name, v.Primary)
	}
	writes := []editor.Write{
		editor.TableWrite(primary, p.Primary.Values),
		editor.AxisWrite(v.Tables[primary.RowAxis], p.NewAxis),
	}

	if p.Secondary == nil || opts.KeepSecondary {
		return writes, nil
	}
	secondary, ok := v.Table(v.Secondary)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no table %q", models.ErrInvalidDefinition, v.Name, v.Secondary)
	}
	writes = append(writes, editor.TableWrite(secondary, p.Secondary.Values))
	if !opts.KeepSecondaryAxis {
		writes = append(writes, editor.AxisWrite(v.Tables[secondary.RowAxis], p.SuggestedAxis))
	}
	return writes, nil
}

// Commit writes the proposal into a copy of image. On failure the input
// image is returned unchanged along with the error.
func Commit(image []byte, v models.Variant, p *Proposal, opts CommitOptions) ([]byte, error) {
	if p.Variant != v.Name {
		return image, fmt.Errorf("%w: proposal for %s applied to %s", models.ErrInvalidState, p.Variant, v.Name)
	}
	writes, err := Writes(v, p, opts)
	if err != nil {
		return image, err
	}
	return editor.Commit(image, writes...)
}
