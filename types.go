package gophot

import (
	"github.com/phil-mansfield/gophot/geom"
)

// Atom is the view of a single simulated atom that the photon accounting
// code reads each step. Positions are in meters and velocities in m/s.
type Atom struct {
	Xs geom.Vec
	Vs geom.Vec
	ID int64

	// Scattered holds the number of photons scattered during the current
	// step, one entry per emission channel. A nil slice means the atom
	// does not scatter light at all.
	Scattered []float64

	// NewlyCreated is set for exactly one step after the atom is added to
	// the world.
	NewlyCreated bool
}

// Emits returns true if the atom carries scattering state.
func (a *Atom) Emits() bool { return a.Scattered != nil }
