package session

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosih/map-rescaler/internal/fixture"
	"github.com/tosih/map-rescaler/pkg/models"
	"github.com/tosih/map-rescaler/pkg/reader"
)

var approx = cmpopts.EquateApprox(1e-12, 1e-12)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "session_test",
		Level:  hclog.Trace,
		Output: &bytes.Buffer{},
	})
	return New(fixture.Catalog(), &models.Image{Name: "test.bin", Data: fixture.Image()}, logger)
}

func TestListDefinitions(t *testing.T) {
	assert.Equal(t, []string{fixture.VariantName}, ListDefinitions(fixture.Catalog()))
	assert.Equal(t, []string{"CNPNJM___T3A"}, ListDefinitions(models.DefaultCatalog()))
}

func TestRescaleProposal(t *testing.T) {
	dec, err := Decode(fixture.Catalog(), fixture.Image(), fixture.VariantName)
	require.NoError(t, err)

	p, err := Rescale(dec, models.Axis{20, 20, 20})
	require.NoError(t, err)

	assert.Equal(t, fixture.VariantName, p.Variant)
	assert.Equal(t, models.Axis{20, 20, 20}, p.Primary.RowAxis)
	assert.Equal(t, fixture.RPMAxis, p.Primary.ColAxis)
	assert.Equal(t, [][]float64{
		{4, 8, 12, 16},
		{5, 10, 15, 20},
		{6, 8, 10, 12},
	}, p.Primary.Values)
	assert.Equal(t, models.Axis{10, 12.5, 9}, p.SuggestedAxis)

	require.NotNil(t, p.Secondary)
	assert.Equal(t, p.SuggestedAxis, p.Secondary.RowAxis)
	want := [][]float64{
		{40, 44, 48, 52},
		{32, 33.6, 35.2, 36.8},
		{40 * 20.0 / 18, 41 * 20.0 / 18, 42 * 20.0 / 18, 43 * 20.0 / 18},
	}
	if diff := cmp.Diff(want, p.Secondary.Values, approx); diff != "" {
		t.Fatalf("secondary (-want +got):\n%s", diff)
	}

	// the decode is not modified by a rescale
	assert.Equal(t, fixture.Airflow, dec.Tables[models.AirflowMap].Values)
}

func TestRescaleIdentityProposal(t *testing.T) {
	dec, err := Decode(fixture.Catalog(), fixture.Image(), fixture.VariantName)
	require.NoError(t, err)

	p, err := Rescale(dec, fixture.TorqueAxis.Clone())
	require.NoError(t, err)
	assert.Equal(t, fixture.Airflow, p.Primary.Values)

	out, err := Commit(fixture.Image(), dec.Variant, p, CommitOptions{KeepSecondary: true})
	require.NoError(t, err)
	assert.Equal(t, fixture.Image(), out, "identity rescale must reproduce the image")
}

func TestRescaleShapeMismatch(t *testing.T) {
	dec, err := Decode(fixture.Catalog(), fixture.Image(), fixture.VariantName)
	require.NoError(t, err)

	p, err := Rescale(dec, models.Axis{1, 2})
	require.ErrorIs(t, err, models.ErrShapeMismatch)
	assert.Nil(t, p)
}

func TestCommitRoundTrip(t *testing.T) {
	img := fixture.Image()
	orig := append([]byte(nil), img...)
	v := fixture.Variant()

	dec, err := Decode(fixture.Catalog(), img, fixture.VariantName)
	require.NoError(t, err)
	p, err := Rescale(dec, models.Axis{20, 20, 20})
	require.NoError(t, err)

	out, err := Commit(img, v, p, CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, orig, img)

	got, err := reader.DecodeVariant(out, v)
	require.NoError(t, err)
	assert.Equal(t, p.Primary.Values, got.Tables[models.AirflowMap].Values)
	assert.Equal(t, p.NewAxis, got.Axes[models.AirflowTorqueAxis])
	assert.Equal(t, p.SuggestedAxis, got.Axes[models.ReferenceTorqueAirflowAxis])
	if diff := cmp.Diff(p.Secondary.Values, got.Tables[models.ReferenceTorqueMap].Values,
		cmpopts.EquateApprox(0, 0.03125)); diff != "" {
		t.Fatalf("secondary (-want +got):\n%s", diff)
	}
	// untouched tables
	assert.Equal(t, fixture.RPMAxis, got.Axes[models.AirflowRPMAxis])
	assert.Equal(t, fixture.RPMAxis, got.Axes[models.ReferenceTorqueRPMAxis])
}

func TestCommitOptions(t *testing.T) {
	v := fixture.Variant()
	dec, err := Decode(fixture.Catalog(), fixture.Image(), fixture.VariantName)
	require.NoError(t, err)
	p, err := Rescale(dec, models.Axis{20, 20, 20})
	require.NoError(t, err)

	writes, err := Writes(v, p, CommitOptions{})
	require.NoError(t, err)
	assert.Len(t, writes, 4)

	writes, err = Writes(v, p, CommitOptions{KeepSecondaryAxis: true})
	require.NoError(t, err)
	assert.Len(t, writes, 3)

	out, err := Commit(fixture.Image(), v, p, CommitOptions{KeepSecondary: true})
	require.NoError(t, err)
	got, err := reader.DecodeVariant(out, v)
	require.NoError(t, err)
	assert.Equal(t, fixture.ReferenceTorque, got.Tables[models.ReferenceTorqueMap].Values)
	assert.Equal(t, fixture.AirflowAxis, got.Axes[models.ReferenceTorqueAirflowAxis])
}

func TestCommitAtomic(t *testing.T) {
	img := fixture.Image()
	orig := append([]byte(nil), img...)
	v := fixture.Variant()

	dec, err := Decode(fixture.Catalog(), img, fixture.VariantName)
	require.NoError(t, err)
	p, err := Rescale(dec, models.Axis{10, 20, 4000})
	require.NoError(t, err)

	out, err := Commit(img, v, p, CommitOptions{})
	require.ErrorIs(t, err, models.ErrValueEncoding)
	assert.Equal(t, orig, out)
	assert.Equal(t, orig, img)

	var berr *models.BatchError
	require.True(t, errors.As(err, &berr))
	assert.ElementsMatch(t, []string{
		models.AirflowTorqueAxis,
		models.ReferenceTorqueMap,
		models.ReferenceTorqueAirflowAxis,
	}, berr.Tables())
}

func TestCommitWrongVariant(t *testing.T) {
	dec, err := Decode(fixture.Catalog(), fixture.Image(), fixture.VariantName)
	require.NoError(t, err)
	p, err := Rescale(dec, models.Axis{20, 20, 20})
	require.NoError(t, err)

	other := fixture.Variant()
	other.Name = "OTHER"
	_, err = Commit(fixture.Image(), other, p, CommitOptions{})
	require.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSessionWorkflow(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, Loaded, s.State())

	_, err := s.Rescale(models.Axis{1, 2, 3})
	require.ErrorIs(t, err, models.ErrInvalidState)
	assert.Equal(t, Loaded, s.State(), "misuse does not fail the session")

	_, err = s.Select(fixture.VariantName)
	require.NoError(t, err)
	assert.Equal(t, Decoded, s.State())

	_, err = s.Select(fixture.VariantName)
	require.NoError(t, err)
	assert.Equal(t, Decoded, s.State())

	_, err = s.Commit(CommitOptions{})
	require.ErrorIs(t, err, models.ErrInvalidState)

	p, err := s.Rescale(models.Axis{20, 20, 20})
	require.NoError(t, err)
	assert.Equal(t, Edited, s.State())
	assert.Same(t, p, s.Proposal())

	out, err := s.Commit(CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, Committed, s.State())

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf))
	assert.Equal(t, Exported, s.State())
	assert.Equal(t, out, buf.Bytes())

	// the session image itself is the original
	dec, err := Decode(fixture.Catalog(), fixture.Image(), fixture.VariantName)
	require.NoError(t, err)
	s.Restart()
	got, err := s.Select(fixture.VariantName)
	require.NoError(t, err)
	assert.Equal(t, dec.Tables, got.Tables)
}

func TestSessionFailed(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Select("NOPE")
	require.ErrorIs(t, err, models.ErrUnknownVariant)
	assert.Equal(t, Failed, s.State())
	assert.ErrorIs(t, s.Err(), models.ErrUnknownVariant)

	_, err = s.Select(fixture.VariantName)
	require.ErrorIs(t, err, models.ErrInvalidState)

	s.Restart()
	assert.Equal(t, Loaded, s.State())
	assert.NoError(t, s.Err())

	_, err = s.Select(fixture.VariantName)
	require.NoError(t, err)
	_, err = s.Rescale(models.Axis{})
	require.ErrorIs(t, err, models.ErrInvalidAxis)
	assert.Equal(t, Failed, s.State())
}

func TestSessionCommitFailure(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Select(fixture.VariantName)
	require.NoError(t, err)
	_, err = s.Rescale(models.Axis{10, 20, 4000})
	require.NoError(t, err)

	out, err := s.Commit(CommitOptions{})
	require.ErrorIs(t, err, models.ErrValueEncoding)
	assert.Nil(t, out)
	assert.Equal(t, Failed, s.State())

	err = s.Export(&bytes.Buffer{})
	require.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSessionOutOfBounds(t *testing.T) {
	img := &models.Image{Name: "short.bin", Data: fixture.Image()[:0x20]}
	s := New(fixture.Catalog(), img, nil)
	_, err := s.Select(fixture.VariantName)
	require.ErrorIs(t, err, models.ErrOutOfBounds)
	assert.Equal(t, Failed, s.State())
	assert.Nil(t, s.Decoded())
}
