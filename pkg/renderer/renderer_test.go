package renderer

import (
	"math"
	"os"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosih/map-rescaler/internal/fixture"
	"github.com/tosih/map-rescaler/pkg/models"
	"github.com/tosih/map-rescaler/pkg/reader"
	"github.com/tosih/map-rescaler/pkg/session"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	pterm.SetDefaultOutput(&strings.Builder{})
	os.Exit(m.Run())
}

func TestBuildTableString(t *testing.T) {
	tbl := models.Table{
		Name:    models.AirflowMap,
		RowAxis: fixture.TorqueAxis,
		ColAxis: fixture.RPMAxis,
		Values:  fixture.Airflow,
	}
	min, max := tbl.MinMax()

	out := BuildTableString(tbl, ModeValues, min, max)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, lines[0], "1000")
	assert.Contains(t, lines[0], "4000")
	assert.Contains(t, lines[2], "10 |")
	assert.Contains(t, lines[2], "2.00")
	assert.Contains(t, lines[4], "40 |")
	assert.Contains(t, lines[4], "24.00")

	out = BuildTableString(tbl, ModeHeatmap, min, max)
	assert.Contains(t, out, "Heatmap:")

	out = BuildTableString(tbl, ModeSymbols, min, max)
	assert.Contains(t, out, "Legend:")
	assert.Contains(t, out, "░")
	assert.Contains(t, out, "█")
}

func TestBuildTableStringMissingLabels(t *testing.T) {
	tbl := models.Table{Values: [][]float64{{1, 1}}, ColAxis: models.Axis{5}}
	out := BuildTableString(tbl, ModeValues, 1, 1)
	assert.Contains(t, out, "?")
}

func TestBand(t *testing.T) {
	for _, tc := range []struct {
		name  string
		value float64
		n     int
		want  int
	}{
		{"min", 0, 4, 0},
		{"below-min", -5, 4, 0},
		{"quarter", 25, 4, 1},
		{"just-below-half", 49.9, 4, 1},
		{"max", 100, 4, 3},
		{"above-max", 150, 5, 4},
		{"fifth", 20, 5, 1},
		{"nan", math.NaN(), 5, 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, band(tc.value, 0, 100, tc.n))
		})
	}
	assert.Equal(t, -1, band(3, 3, 3, 4))
}

func TestLegends(t *testing.T) {
	assert.Equal(t, "Heatmap: ▄▄ Very Low  ▄▄ Low  ▄▄ Medium  ▄▄ High  ▄▄ Very High", heatLegend())
	assert.Equal(t, "Legend: ░ Low  ▒ Med  ▓ High  █ Max", symbolLegend())
	assert.Equal(t, "·", symbolCell(1, 1, 1))
}

func TestVariantRows(t *testing.T) {
	rows := VariantRows(fixture.Catalog())
	require.Len(t, rows, 1+len(fixture.Variant().Tables))
	assert.Equal(t, "Variant", rows[0][0])
	assert.Equal(t, []string{
		fixture.VariantName, models.AirflowMap, "0x000010", "3x4", "16", "x*0.5", "transposed",
	}, rows[1])
	assert.Equal(t, models.ReferenceTorqueAirflowAxis, rows[len(rows)-1][1])
}

func TestRenderDoesNotPanic(t *testing.T) {
	dec, err := reader.DecodeVariant(fixture.Image(), fixture.Variant())
	require.NoError(t, err)
	p, err := session.Rescale(dec, models.Axis{20, 20, 20})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		ListVariants(fixture.Catalog())
		DisplayDecoded(dec, ModeValues)
		DisplayDecoded(dec, ModeSymbols, models.AirflowTorqueAxis, "nope")
		RenderProposal(dec, p, ModeHeatmap)
	})
}
