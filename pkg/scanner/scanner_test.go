package scanner

import (
	"os"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosih/map-rescaler/internal/fixture"
	"github.com/tosih/map-rescaler/pkg/codec"
	"github.com/tosih/map-rescaler/pkg/models"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	pterm.SetDefaultOutput(&strings.Builder{})
	os.Exit(m.Run())
}

func TestScanAxes16Bit(t *testing.T) {
	data := make([]byte, 128)
	for i := range data {
		data[i] = 0xFF
	}
	def := models.TableDefinition{
		Name:     "rpm",
		Shape:    models.AxisShape(4),
		BitWidth: 16,
		Scaling:  models.Identity(),
	}
	for _, off := range []int64{0x30, 0x70} {
		def.Offset = off
		require.NoError(t, codec.EncodeAxis(data, def, fixture.RPMAxis))
	}

	got, err := ScanAxes(data, Options{Length: 4, BitWidths: []int{16}, MinSpan: 1000})
	require.NoError(t, err)

	offsets := make([]int, len(got))
	for i, c := range got {
		offsets[i] = c.Offset
	}
	assert.Equal(t, []int{0x30, 0x70}, offsets)
	assert.Equal(t, []float64{1000, 2000, 3000, 4000}, got[0].Values)
	assert.Equal(t, 1000.0, got[0].Min)
	assert.Equal(t, 4000.0, got[0].Max)
	assert.InDelta(t, 1250000.0, got[0].Variance, 1e-9)

	// the candidate decodes back to the same axis
	axis, err := codec.DecodeAxis(data, got[1].Definition("rpm"))
	require.NoError(t, err)
	assert.Equal(t, fixture.RPMAxis, axis)
}

func TestScanAxes8Bit(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = 0xEE
	}
	copy(data[5:], []byte{1, 2, 3, 50})
	copy(data[20:], []byte{9, 8, 7, 6})

	got, err := ScanAxes(data, Options{Length: 4, BitWidths: []int{8}, MinSpan: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Offset)
	assert.Equal(t, 8, got[0].BitWidth)
}

func TestScanAxesNoOverlap(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	got, err := ScanAxes(data, Options{Length: 4, BitWidths: []int{8}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Offset)
	assert.Equal(t, 4, got[1].Offset)
}

func TestScanAxesErrors(t *testing.T) {
	_, err := ScanAxes(nil, Options{Length: 1, BitWidths: []int{8}})
	require.ErrorIs(t, err, models.ErrInvalidDefinition)

	_, err = ScanAxes(nil, Options{Length: 4, BitWidths: []int{32}})
	require.ErrorIs(t, err, models.ErrUnsupportedBitWidth)

	got, err := ScanAxes([]byte{1, 2}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotPanics(t, func() { DisplayResults(got) })
}
