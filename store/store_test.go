package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gophot"
	"github.com/phil-mansfield/gophot/emission"
	"github.com/phil-mansfield/gophot/geom"
)

var backends = []Backend{SQLite, Arrow}

func storePath(t *testing.T, b Backend) string {
	if b == SQLite {
		return filepath.Join(t.TempDir(), "photons.db")
	}
	return filepath.Join(t.TempDir(), "photons")
}

func photonBatch(n int, tag float64) []PhotonRecord {
	recs := make([]PhotonRecord, n)
	for i := range recs {
		x := tag + float64(i)
		recs[i] = PhotonRecord{x, -x, 2 * x, 0, 0, 1}
	}
	return recs
}

func TestAppendPhotons(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			path := storePath(t, b)
			s, err := Create(b, path)
			require.NoError(t, err)

			b1, b2, b3 := photonBatch(5, 100), photonBatch(0, 200), photonBatch(3, 300)
			require.NoError(t, s.AppendPhotons(ctx, b1))
			n, err := s.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 5, n)

			require.NoError(t, s.AppendPhotons(ctx, b2))
			require.NoError(t, s.AppendPhotons(ctx, b3))

			n, err = s.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 8, n)

			recs, err := s.ReadPhotons(ctx)
			require.NoError(t, err)
			require.Len(t, recs, 8)
			assert.ElementsMatch(t, b1, recs[:5])
			assert.ElementsMatch(t, b3, recs[5:])
			require.NoError(t, s.Close())

			// Everything appended is visible to a fresh reader.
			r, err := Open(b, path)
			require.NoError(t, err)
			defer r.Close()
			n, err = r.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 8, n)
			again, err := r.ReadPhotons(ctx)
			require.NoError(t, err)
			assert.Equal(t, recs, again)

			assert.ErrorIs(t, r.AppendPhotons(ctx, b1), ErrReadOnly)
		})
	}
}

func TestWriteAtomsOnce(t *testing.T) {
	ctx := context.Background()
	atoms := []AtomRecord{
		{1, 2, 3, 4, 5, 6},
		{-1, -2, -3, -4, -5, -6},
	}

	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			path := storePath(t, b)
			s, err := Create(b, path)
			require.NoError(t, err)
			defer s.Close()

			// Empty batches never create the table.
			require.NoError(t, s.WriteAtoms(ctx, nil))
			require.NoError(t, s.WriteAtoms(ctx, []AtomRecord{}))
			got, err := s.ReadAtoms(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)

			require.NoError(t, s.WriteAtoms(ctx, atoms))
			err = s.WriteAtoms(ctx, []AtomRecord{{7, 7, 7, 7, 7, 7}})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAtomsWritten)

			// An empty batch after the table exists is still a no-op.
			require.NoError(t, s.WriteAtoms(ctx, nil))

			got, err = s.ReadAtoms(ctx)
			require.NoError(t, err)
			assert.Equal(t, atoms, got)

			// Atoms and photons are independent.
			require.NoError(t, s.AppendPhotons(ctx, photonBatch(2, 0)))
			n, err := s.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestCreateTruncates(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			path := storePath(t, b)
			s, err := Create(b, path)
			require.NoError(t, err)
			require.NoError(t, s.AppendPhotons(ctx, photonBatch(4, 0)))
			require.NoError(t, s.WriteAtoms(ctx, []AtomRecord{{}}))
			require.NoError(t, s.Close())

			s, err = Create(b, path)
			require.NoError(t, err)
			defer s.Close()

			n, err := s.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
			recs, err := s.ReadPhotons(ctx)
			require.NoError(t, err)
			assert.Empty(t, recs)
			atoms, err := s.ReadAtoms(ctx)
			require.NoError(t, err)
			assert.Nil(t, atoms)
			require.NoError(t, s.WriteAtoms(ctx, []AtomRecord{{}}))
		})
	}
}

func TestCreateFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A regular file cannot be used as a parent directory.
	_, err := CreateSQLite(filepath.Join(blocker, "photons.db"))
	assert.Error(t, err)
	_, err = CreateArrow(filepath.Join(blocker, "photons"))
	assert.Error(t, err)

	_, err = Open(SQLite, filepath.Join(dir, "missing.db"))
	assert.Error(t, err)
	_, err = Open(Arrow, filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestCreateKeepsOtherFiles(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "run")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("keep me"), 0o644))

	for i := 0; i < 2; i++ {
		s, err := CreateArrow(dir)
		require.NoError(t, err)
		require.NoError(t, s.AppendPhotons(ctx, photonBatch(3, 0)))
		require.NoError(t, s.Close())
	}

	data, err := os.ReadFile(notes)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	r, err := OpenArrow(dir)
	require.NoError(t, err)
	defer r.Close()
	n, err := r.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWriteAfterClose(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			s, err := Create(b, storePath(t, b))
			require.NoError(t, err)
			require.NoError(t, s.AppendPhotons(ctx, photonBatch(1, 0)))
			require.NoError(t, s.Close())
			require.NoError(t, s.Close())

			assert.ErrorIs(t, s.AppendPhotons(ctx, photonBatch(1, 0)), ErrClosed)
			assert.ErrorIs(t, s.WriteAtoms(ctx, []AtomRecord{{}}), ErrClosed)
		})
	}
}

func TestOpenSQLiteReadOnly(t *testing.T) {
	ctx := context.Background()
	path := storePath(t, SQLite)
	s, err := CreateSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.AppendPhotons(ctx, photonBatch(2, 0)))
	require.NoError(t, s.Close())

	// A closed store is a single file with no journal beside it.
	for _, suffix := range []string{"-wal", "-shm"} {
		_, err := os.Stat(path + suffix)
		assert.True(t, os.IsNotExist(err), "%s exists", path+suffix)
	}

	r, err := OpenSQLite(path)
	require.NoError(t, err)
	defer r.Close()

	var mode string
	require.NoError(t, r.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "delete", mode)
	_, err = r.db.Exec("CREATE TABLE scratch (a INTEGER)")
	assert.Error(t, err)

	n, err := r.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecords(t *testing.T) {
	e := emission.Event{
		Position:  geom.Vec{1, 2, 3},
		Direction: geom.Vec{0, 0.6, 0.8},
	}
	assert.Equal(t, PhotonRecord{1, 2, 3, 0, 0.6, 0.8}, NewPhotonRecord(&e))

	a := gophot.Atom{Xs: geom.Vec{1, 2, 3}, Vs: geom.Vec{4, 5, 6}}
	assert.Equal(t, AtomRecord{1, 2, 3, 4, 5, 6}, NewAtomRecord(&a))
}

func TestParseBackend(t *testing.T) {
	table := []struct {
		s  string
		b  Backend
		ok bool
	}{
		{"sqlite", SQLite, true},
		{"SQLite", SQLite, true},
		{" Arrow ", Arrow, true},
		{"hdf5", "", false},
		{"", "", false},
	}
	for i, test := range table {
		b, err := ParseBackend(test.s)
		if test.ok != (err == nil) || b != test.b {
			t.Errorf("%d) ParseBackend(%q) = (%q, %v)", i, test.s, b, err)
		}
	}
}
