package compare

import (
	"os"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosih/map-rescaler/internal/fixture"
	"github.com/tosih/map-rescaler/pkg/models"
	"github.com/tosih/map-rescaler/pkg/session"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	pterm.SetDefaultOutput(&strings.Builder{})
	os.Exit(m.Run())
}

func TestVariantIdentical(t *testing.T) {
	res, err := Variant(fixture.Image(), fixture.Image(), fixture.Variant())
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Empty(t, res.Axes)
	require.Len(t, res.Tables, 2)
	for _, d := range res.Tables {
		assert.Zero(t, d.Changed)
		assert.Equal(t, 12, d.Cells)
	}
}

func TestVariantAfterCommit(t *testing.T) {
	img := fixture.Image()
	v := fixture.Variant()
	dec, err := session.Decode(fixture.Catalog(), img, fixture.VariantName)
	require.NoError(t, err)
	p, err := session.Rescale(dec, models.Axis{20, 20, 20})
	require.NoError(t, err)
	out, err := session.Commit(img, v, p, session.CommitOptions{KeepSecondary: true})
	require.NoError(t, err)

	res, err := Variant(img, out, v)
	require.NoError(t, err)
	assert.True(t, res.Changed())

	require.Len(t, res.Axes, 1)
	assert.Equal(t, models.AirflowTorqueAxis, res.Axes[0].Name)
	assert.Equal(t, fixture.TorqueAxis, res.Axes[0].Before)
	assert.Equal(t, models.Axis{20, 20, 20}, res.Axes[0].After)

	require.Len(t, res.Tables, 2)
	air := res.Tables[0]
	assert.Equal(t, models.AirflowMap, air.Name)
	// row 1 is unchanged, row 0 doubles, row 2 halves
	assert.Equal(t, [][]float64{
		{2, 4, 6, 8},
		{0, 0, 0, 0},
		{-6, -8, -10, -12},
	}, air.Diff)
	assert.Equal(t, 8, air.Changed)
	assert.Equal(t, 8.0, air.MaxIncrease)
	assert.Equal(t, -12.0, air.MaxDecrease)
	assert.InDelta(t, -2.0, air.MeanChange, 1e-12)

	assert.Zero(t, res.Tables[1].Changed)

	s := BuildDiffString(air)
	assert.Contains(t, s, "▲▲")
	assert.Contains(t, s, "▼▼")
	assert.NotPanics(t, func() { Display(res) })
}

func TestVariantOutOfBounds(t *testing.T) {
	_, err := Variant(fixture.Image(), fixture.Image()[:16], fixture.Variant())
	require.ErrorIs(t, err, models.ErrOutOfBounds)
}
