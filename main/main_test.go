package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dustin/go-humanize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/gophot/density"
	"github.com/phil-mansfield/gophot/io"
	"github.com/phil-mansfield/gophot/logging"
	"github.com/phil-mansfield/gophot/store"
)

func testConfig(t *testing.T, mode, output string) *io.ImagingConfig {
	con := &io.DefaultImagingWrapper().Imaging
	con.Mode, con.Output = mode, filepath.Join(t.TempDir(), output)
	con.DomainSize, con.CellNumber = 2e-3, 4
	con.Atoms, con.Threads, con.Seed = 5, 2, 11
	con.Exposure = 2e-6
	require.NoError(t, con.Check())
	return con
}

func runCmd(t *testing.T, args ...string) string {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestRunHistogram(t *testing.T) {
	con := testConfig(t, "Histogram", "hist.csv")
	var logs bytes.Buffer
	m, err := runImaging(context.Background(), con, logging.NewLogger("info", &logs))
	require.NoError(t, err)

	assert.Equal(t, 20, m.Steps)
	assert.Equal(t, 5, m.Atoms)
	assert.Greater(t, m.Photons, int64(0))
	assert.Equal(t, int64(0), m.Dropped)

	vals, err := density.ReadHistogram(con.Output, 4)
	require.NoError(t, err)
	total := int64(0)
	for _, v := range vals {
		total += int64(v)
	}
	assert.Equal(t, m.Photons, total)

	got, err := io.ReadManifest(io.ManifestPath(con.Output))
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.Contains(t, logs.String(), "imaging run finished")
}

func TestRunList(t *testing.T) {
	for _, b := range []string{"SQLite", "Arrow"} {
		t.Run(b, func(t *testing.T) {
			con := testConfig(t, "List", "photons.out")
			con.Backend = b
			m, err := runImaging(context.Background(), con, logging.NewLogger("info", &bytes.Buffer{}))
			require.NoError(t, err)

			backend, err := store.ParseBackend(b)
			require.NoError(t, err)
			s, err := store.Open(backend, con.Output)
			require.NoError(t, err)
			n, err := s.Len(context.Background())
			require.NoError(t, err)
			assert.Equal(t, m.Photons, int64(n))
			atoms, err := s.ReadAtoms(context.Background())
			require.NoError(t, err)
			assert.Len(t, atoms, 5)
			require.NoError(t, s.Close())

			out := runCmd(t, "inspect", b, con.Output)
			assert.Contains(t, out, fmt.Sprintf("photons: %s", humanize.Comma(m.Photons)))
			assert.Contains(t, out, "initial atoms: 5")
			assert.Contains(t, out, "px")
		})
	}
}

func TestRunStream(t *testing.T) {
	con := testConfig(t, "Stream", "photons.csv.zst")
	m, err := runImaging(context.Background(), con, logging.NewLogger("info", &bytes.Buffer{}))
	require.NoError(t, err)

	es, err := io.ReadPhotonStream(con.Output)
	require.NoError(t, err)
	assert.Equal(t, m.Photons, int64(len(es)))

	out := runCmd(t, "inspect", "stream", con.Output)
	assert.Contains(t, out, fmt.Sprintf("photons: %s", humanize.Comma(m.Photons)))
	assert.NotContains(t, out, "initial atoms")
}

func TestExampleConfigCmd(t *testing.T) {
	out := runCmd(t, "example-config")
	wrap := io.DefaultImagingWrapper()
	require.NoError(t, gcfg.ReadStringInto(wrap, out))
	assert.NoError(t, wrap.Imaging.Check())
}

func TestInspectErrors(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"inspect", "hdf5", "photons.h5"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Backend"))
}
