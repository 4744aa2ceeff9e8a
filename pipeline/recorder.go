package pipeline

import (
	"context"

	"github.com/phil-mansfield/gophot"
	"github.com/phil-mansfield/gophot/store"
)

// Recorder writes the initial position and velocity of newly created atoms.
// It relies on the owner of the atoms clearing NewlyCreated after each step,
// so an atom is only ever seen as new once.
type Recorder struct {
	w    store.OnceWriter
	recs []store.AtomRecord
}

// NewRecorder creates a Recorder which writes to w.
func NewRecorder(w store.OnceWriter) *Recorder {
	return &Recorder{w: w}
}

// Record writes a record for every atom flagged NewlyCreated and returns the
// number written. If there are none, nothing is written. Since the atom
// table can only be created once, a second step with new atoms fails with
// store.ErrAtomsWritten.
func (r *Recorder) Record(ctx context.Context, atoms []gophot.Atom) (int, error) {
	r.recs = r.recs[:0]
	for i := range atoms {
		if atoms[i].NewlyCreated {
			r.recs = append(r.recs, store.NewAtomRecord(&atoms[i]))
		}
	}
	if len(r.recs) == 0 {
		return 0, nil
	}
	if err := r.w.WriteAtoms(ctx, r.recs); err != nil {
		return 0, err
	}
	return len(r.recs), nil
}
