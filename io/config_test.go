package io

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gcfg.v1"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "imaging.config")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestExampleImagingFile(t *testing.T) {
	wrap := DefaultImagingWrapper()
	require.NoError(t, gcfg.ReadStringInto(wrap, ExampleImagingFile))
	con := &wrap.Imaging
	require.NoError(t, con.Check())

	assert.Equal(t, "Histogram", con.Mode)
	assert.Equal(t, 2e-3, con.DomainSize)
	assert.Equal(t, 100, con.CellNumber)
	assert.Equal(t, 150, con.Steps())
}

func TestReadImagingConfigDefaults(t *testing.T) {
	path := writeConfig(t, `[Imaging]
Mode = List
Output = photons.db
`)
	con, err := ReadImagingConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", con.Backend)
	assert.Equal(t, 20, con.Atoms)
	assert.Equal(t, 1e-7, con.Timestep)
	assert.Equal(t, 15e-6, con.Exposure)
	assert.True(t, con.Fluctuations)
	assert.Equal(t, runtime.NumCPU(), con.Threads)
	assert.Equal(t, int64(0), con.Seed)
	assert.Equal(t, "info", con.LogLevel)
}

func TestReadImagingConfigEnv(t *testing.T) {
	path := writeConfig(t, `[Imaging]
Mode = Stream
Output = photons.csv
Threads = 2
Seed = 5
`)
	t.Setenv("GOPHOT_THREADS", "7")
	t.Setenv("GOPHOT_OUTPUT", "other.csv.zst")
	t.Setenv("GOPHOT_LOG_LEVEL", "debug")

	con, err := ReadImagingConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, con.Threads)
	assert.Equal(t, int64(5), con.Seed)
	assert.Equal(t, "other.csv.zst", con.Output)
	assert.Equal(t, "debug", con.LogLevel)

	t.Setenv("GOPHOT_THREADS", "many")
	_, err = ReadImagingConfig(path)
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	table := []struct {
		body string
		ok   bool
	}{
		{"Mode = Histogram\nOutput = h.csv\nDomainSize = 1\nCellNumber = 4", true},
		{"Mode = Histogram\nOutput = h.csv\nCellNumber = 4", false},
		{"Mode = Histogram\nOutput = h.csv\nDomainSize = 1", false},
		{"Mode = List\nOutput = p\nBackend = Arrow", true},
		{"Mode = List\nOutput = p\nBackend = HDF5", false},
		{"Mode = Stream\nOutput = p.csv", true},
		{"Mode = Stream", false},
		{"Mode = Movie\nOutput = p.csv", false},
		{"Mode = Stream\nOutput = p.csv\nThreads = 0", false},
		{"Mode = Stream\nOutput = p.csv\nTimestep = 0", false},
		{"Mode = Stream\nOutput = p.csv\nExposure = 1e-8", false},
		{"Mode = Stream\nOutput = p.csv\nBeamRadius = 0", false},
		{"Mode = Stream\nOutput = p.csv\nAtoms = 0", false},
		{"Mode = Stream\nOutput = p.csv\nAtoms = 0\nAtomFile = a.txt", true},
		{"Mode = Stream\nOutput = p.csv\nLogLevel = loud", false},
	}

	for i, test := range table {
		wrap := DefaultImagingWrapper()
		err := gcfg.ReadStringInto(wrap, "[Imaging]\n"+test.body+"\n")
		require.NoError(t, err, "%d)", i)
		err = wrap.Imaging.Check()
		if test.ok != (err == nil) {
			t.Errorf("%d) Check() = %v, expected ok = %v", i, err, test.ok)
		}
	}
}

func TestReadImagingConfigErrors(t *testing.T) {
	_, err := ReadImagingConfig(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	path := writeConfig(t, "[Imaging]\nMode = List\nOutput = p\nColour = red\n")
	_, err = ReadImagingConfig(path)
	assert.Error(t, err)
}
