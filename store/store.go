/*package store persists photon emission records incrementally.

A Store exposes two separate capabilities. Appender grows the photon sequence
by one batch per step and never rewrites earlier records. OnceWriter creates
the table of initial atom states, which can only happen once: a second
non-empty write fails with ErrAtomsWritten instead of overwriting or
appending.

Two backends are provided: a single SQLite file and a directory of Arrow IPC
streams. Both are durable after every successful call, so there is no
separate finalization step beyond Close.
*/
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phil-mansfield/gophot"
	"github.com/phil-mansfield/gophot/emission"
)

var (
	// ErrAtomsWritten is returned when the initial atom table is written a
	// second time.
	ErrAtomsWritten = errors.New("initial atom table has already been written")
	// ErrReadOnly is returned by write operations on a Store from Open.
	ErrReadOnly = errors.New("store was opened read-only")
	// ErrClosed is returned by write operations after Close.
	ErrClosed = errors.New("store is closed")
)

// PhotonRecord is the persisted form of an emission.Event.
type PhotonRecord struct {
	PX, PY, PZ float64
	DX, DY, DZ float64
}

// AtomRecord is the persisted initial position and velocity of an atom.
type AtomRecord struct {
	PX, PY, PZ float64
	VX, VY, VZ float64
}

// NewPhotonRecord converts an emission event to its persisted layout.
func NewPhotonRecord(e *emission.Event) PhotonRecord {
	return PhotonRecord{
		e.Position[0], e.Position[1], e.Position[2],
		e.Direction[0], e.Direction[1], e.Direction[2],
	}
}

// NewAtomRecord records the current position and velocity of an atom.
func NewAtomRecord(a *gophot.Atom) AtomRecord {
	return AtomRecord{
		a.Xs[0], a.Xs[1], a.Xs[2],
		a.Vs[0], a.Vs[1], a.Vs[2],
	}
}

func (r *PhotonRecord) row() [6]float64 {
	return [6]float64{r.PX, r.PY, r.PZ, r.DX, r.DY, r.DZ}
}

func (r *AtomRecord) row() [6]float64 {
	return [6]float64{r.PX, r.PY, r.PZ, r.VX, r.VY, r.VZ}
}

func photonFromRow(x [6]float64) PhotonRecord {
	return PhotonRecord{x[0], x[1], x[2], x[3], x[4], x[5]}
}

func atomFromRow(x [6]float64) AtomRecord {
	return AtomRecord{x[0], x[1], x[2], x[3], x[4], x[5]}
}

var (
	photonColumns = [6]string{"px", "py", "pz", "dx", "dy", "dz"}
	atomColumns   = [6]string{"px", "py", "pz", "vx", "vy", "vz"}
)

// Appender is a durable sequence which only grows. Each call appends its
// whole batch after every previously appended record, or fails without
// appending anything.
type Appender interface {
	AppendPhotons(ctx context.Context, recs []PhotonRecord) error
}

// OnceWriter creates the initial atom table. Empty batches are ignored and
// do not create the table.
type OnceWriter interface {
	WriteAtoms(ctx context.Context, recs []AtomRecord) error
}

// Reader gives access to previously written records.
type Reader interface {
	// Len returns the number of photon records in the sequence.
	Len(ctx context.Context) (int, error)
	ReadPhotons(ctx context.Context) ([]PhotonRecord, error)
	// ReadAtoms returns nil if the atom table was never created.
	ReadAtoms(ctx context.Context) ([]AtomRecord, error)
}

// Store is the full event store.
type Store interface {
	Appender
	OnceWriter
	Reader
	Close() error
}

// Backend names a storage implementation.
type Backend string

const (
	SQLite Backend = "sqlite"
	Arrow  Backend = "arrow"
)

// ParseBackend matches a backend name case-insensitively.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case SQLite:
		return SQLite, nil
	case Arrow:
		return Arrow, nil
	}
	return "", fmt.Errorf(
		"Backend must be one of [SQLite | Arrow]. '%s' is not recognized.", s,
	)
}

// Create creates a new store at path, truncating any store already there.
func Create(b Backend, path string) (Store, error) {
	switch b {
	case SQLite:
		return CreateSQLite(path)
	case Arrow:
		return CreateArrow(path)
	}
	return nil, fmt.Errorf("unknown store backend '%s'", b)
}

// Open opens an existing store for reading.
func Open(b Backend, path string) (Store, error) {
	switch b {
	case SQLite:
		return OpenSQLite(path)
	case Arrow:
		return OpenArrow(path)
	}
	return nil, fmt.Errorf("unknown store backend '%s'", b)
}
