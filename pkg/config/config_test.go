package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosih/map-rescaler/pkg/models"
)

const catalogYAML = `
variants:
  - name: CNPNJM___T3A
    description: airflow and torque
    primary: airflow_map
    secondary: reference_torque_map
    tables:
      airflow_map:
        location: 0x255D1C
        size: [12, 16]
        bit: 16
        math: {kind: linear, factor: 0.042389562829}
        layout: inverse
        rows: airflow_torque_axis
        cols: airflow_rpm_axis
        unit: mg/stk
      airflow_rpm_axis:
        location: 0x25417A
        size: [16]
        bit: 16
        math: {kind: identity}
      airflow_torque_axis:
        location: 0x25424A
        size: [12]
        bit: 16
        math: {kind: linear, factor: 0.03125}
      reference_torque_map:
        location: 0x257B04
        size: [12, 16]
        bit: 16
        math: {kind: linear, factor: 0.03125}
        layout: transposed
        rows: reference_torque_airflow_axis
        cols: reference_torque_rpm_axis
      reference_torque_rpm_axis:
        location: 0x257AE2
        size: [16]
        bit: 16
      reference_torque_airflow_axis:
        location: 0x25403E
        size: [12]
        bit: 16
        math: {factor: 0.042389562829}
`

func TestParseCatalogMatchesBuiltin(t *testing.T) {
	c, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"CNPNJM___T3A"}, c.Names())

	got, err := c.Variant("CNPNJM___T3A")
	require.NoError(t, err)
	want, err := models.DefaultCatalog().Variant("CNPNJM___T3A")
	require.NoError(t, err)

	for name, wdef := range want.Tables {
		gdef, ok := got.Tables[name]
		require.True(t, ok, "missing %s", name)
		assert.Equal(t, wdef.Offset, gdef.Offset, name)
		assert.Equal(t, wdef.Shape, gdef.Shape, name)
		assert.Equal(t, wdef.BitWidth, gdef.BitWidth, name)
		assert.Equal(t, wdef.Scaling, gdef.Scaling, name)
		assert.Equal(t, wdef.Layout, gdef.Layout, name)
		assert.Equal(t, wdef.RowAxis, gdef.RowAxis, name)
		assert.Equal(t, wdef.ColAxis, gdef.ColAxis, name)
	}
	assert.Equal(t, want.Primary, got.Primary)
	assert.Equal(t, want.Secondary, got.Secondary)
}

func TestParseCatalogErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "bit-width",
			yaml: `
variants:
  - name: V
    tables:
      a: {location: 0, size: [4], bit: 32}
`,
			want: models.ErrUnsupportedBitWidth,
		},
		{
			name: "zero-factor",
			yaml: `
variants:
  - name: V
    tables:
      a: {location: 0, size: [4], bit: 8, math: {kind: linear, factor: 0}}
`,
			want: models.ErrInvalidDefinition,
		},
		{
			name: "missing-location",
			yaml: `
variants:
  - name: V
    tables:
      a: {size: [4], bit: 8}
`,
			want: models.ErrInvalidDefinition,
		},
		{
			name: "bad-size",
			yaml: `
variants:
  - name: V
    tables:
      a: {location: 0, size: [1, 2, 3], bit: 8}
`,
			want: models.ErrInvalidDefinition,
		},
		{
			name: "unknown-axis",
			yaml: `
variants:
  - name: V
    tables:
      m: {location: 0, size: [2, 2], bit: 8, rows: nope}
`,
			want: models.ErrInvalidDefinition,
		},
		{
			name: "axis-length",
			yaml: `
variants:
  - name: V
    tables:
      m: {location: 0, size: [2, 2], bit: 8, rows: ax}
      ax: {location: 8, size: [3], bit: 8}
`,
			want: models.ErrInvalidDefinition,
		},
		{
			name: "empty",
			yaml: `variants: []`,
			want: models.ErrInvalidDefinition,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tc.yaml))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseCatalogUnknownField(t *testing.T) {
	_, err := ParseCatalog([]byte(`
variants:
  - name: V
    tables:
      a: {location: 0, size: [4], bit: 8, offest: 3}
`))
	require.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()

	s, err := LoadSettings(filepath.Join(dir, "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	path := filepath.Join(dir, "settings.ini")
	require.NoError(t, os.WriteFile(path, []byte(`
[catalog]
path = maps.yaml

[log]
level = debug

[display]
mode = heatmap

[backup]
dir = /tmp/backups

[web]
port = 9090
`), 0644))

	s, err = LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		CatalogPath: "maps.yaml",
		LogLevel:    "debug",
		DisplayMode: "heatmap",
		BackupDir:   "/tmp/backups",
		Port:        9090,
	}, s)

	require.NoError(t, os.WriteFile(path, []byte("[display]\nmode = sparkles\n[web]\nport = 70000\n"), 0644))
	s, err = LoadSettings(path)
	require.Error(t, err)
	assert.Equal(t, "values", s.DisplayMode)
}
