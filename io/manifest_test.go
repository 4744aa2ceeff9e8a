package io

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest(t *testing.T) {
	con := &DefaultImagingWrapper().Imaging
	con.Mode, con.Output = "Histogram", "hist.csv"
	con.DomainSize, con.CellNumber = 1e-3, 50
	con.Seed = 12

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManifest(con, start)
	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)
	assert.Equal(t, 50, m.CellNumber)

	m.Finished = start.Add(time.Minute)
	m.Steps, m.Photons, m.Dropped = 150, 123456, 7

	path := filepath.Join(t.TempDir(), ManifestPath("hist.csv"))
	assert.Equal(t, "hist.csv.run.yaml", filepath.Base(path))
	require.NoError(t, WriteManifest(path, m))

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.True(t, m.Started.Equal(got.Started))
	assert.True(t, m.Finished.Equal(got.Finished))
	got.Started, got.Finished = m.Started, m.Finished
	assert.Equal(t, m, got)

	other := NewManifest(con, start)
	assert.NotEqual(t, m.RunID, other.RunID)
}
