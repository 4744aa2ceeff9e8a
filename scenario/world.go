package scenario

import (
	"fmt"
	"math"
	"sync"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/gophot"
	"github.com/phil-mansfield/gophot/emission"
	"github.com/phil-mansfield/gophot/geom"
	"github.com/phil-mansfield/gophot/rand"
)

// explicitRecoil is the largest photon number for which emission kicks are
// summed one by one. Above it the summed kick is drawn from its Gaussian
// limit.
const explicitRecoil = 10

// Config describes a World.
type Config struct {
	Beams        []Beam
	Timestep     float64
	Fluctuations bool
	Workers      int
	// Seed fixes the worker generators. Zero seeds from process entropy.
	Seed uint64
}

// World owns the atoms and advances them between pipeline steps.
type World struct {
	Atoms []gophot.Atom

	beams        []Beam
	dt           float64
	fluctuations bool
	vRecoil      float64
	gens         []*rand.Generator
	nextID       int64
}

// NewWorld creates an empty world.
func NewWorld(cfg Config) (*World, error) {
	if len(cfg.Beams) == 0 {
		return nil, fmt.Errorf("A world needs at least one beam.")
	} else if !(cfg.Timestep > 0) {
		return nil, fmt.Errorf("Timestep must be positive, but is %g.", cfg.Timestep)
	}
	for i := range cfg.Beams {
		if !(cfg.Beams[i].Radius > 0) || cfg.Beams[i].Direction.Norm() == 0 {
			return nil, fmt.Errorf("Beam %d has no radius or no direction.", i)
		}
		cfg.Beams[i].Direction = cfg.Beams[i].Direction.Scale(
			1 / cfg.Beams[i].Direction.Norm(),
		)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	seed := cfg.Seed
	if seed != 0 {
		// Keep the world's streams apart from the pipeline's.
		seed ^= 0x5bd1e995
	}

	return &World{
		beams:        cfg.Beams,
		dt:           cfg.Timestep,
		fluctuations: cfg.Fluctuations,
		vRecoil:      RecoilVelocity(RbWavelength, RbMass),
		gens:         rand.NewGenerators(rand.PCG, seed, workers),
	}, nil
}

// AddAtom adds a rubidium atom at x with velocity v and flags it as newly
// created.
func (w *World) AddAtom(x, v geom.Vec) {
	w.Atoms = append(w.Atoms, gophot.Atom{
		Xs: x, Vs: v, ID: w.nextID,
		Scattered:    make([]float64, len(w.beams)),
		NewlyCreated: true,
	})
	w.nextID++
}

// AddAtoms adds n atoms at rest at the origin.
func (w *World) AddAtoms(n int) {
	for i := 0; i < n; i++ {
		w.AddAtom(geom.Vec{}, geom.Vec{})
	}
}

// LoadAtoms adds one atom for every row of a text table whose first six
// columns are x, y, z, vx, vy, vz in SI units. It returns the number of
// atoms added.
func (w *World) LoadAtoms(file string) (int, error) {
	cols, err := table.ReadTable(file, []int{0, 1, 2, 3, 4, 5}, nil)
	if err != nil {
		return 0, err
	}
	n := len(cols[0])
	for i := 0; i < n; i++ {
		w.AddAtom(
			geom.Vec{cols[0][i], cols[1][i], cols[2][i]},
			geom.Vec{cols[3][i], cols[4][i], cols[5][i]},
		)
	}
	return n, nil
}

// parallel runs f over contiguous chunks of the atoms, one per worker.
func (w *World) parallel(f func(gen *rand.Generator, atoms []gophot.Atom)) {
	workers, n := len(w.gens), len(w.Atoms)
	var wg sync.WaitGroup
	wg.Add(workers)
	for id := 0; id < workers; id++ {
		go func(id int) {
			defer wg.Done()
			f(w.gens[id], w.Atoms[id*n/workers:(id+1)*n/workers])
		}(id)
	}
	wg.Wait()
}

// Scatter sets the photons scattered by every atom from every beam during
// the next step. With fluctuations the number is Poisson distributed,
// otherwise it is the mean.
func (w *World) Scatter() {
	w.parallel(func(gen *rand.Generator, atoms []gophot.Atom) {
		for i := range atoms {
			a := &atoms[i]
			if len(a.Scattered) != len(w.beams) {
				a.Scattered = make([]float64, len(w.beams))
			}
			for j := range w.beams {
				mean := w.beams[j].ScatteringRate(a.Xs) * w.dt
				if w.fluctuations {
					a.Scattered[j] = gen.Poisson(mean)
				} else {
					a.Scattered[j] = mean
				}
			}
		}
	})
}

// Integrate applies the absorption and emission recoil of the scattered
// photons and moves every atom forward by one timestep.
func (w *World) Integrate() {
	w.parallel(func(gen *rand.Generator, atoms []gophot.Atom) {
		for i := range atoms {
			a := &atoms[i]
			for j := range w.beams {
				if j >= len(a.Scattered) {
					break
				}
				n := emission.ScatterCount(a.Scattered[j : j+1])
				if n == 0 {
					continue
				}
				a.Vs.AddScaledSelf(w.beams[j].Direction, float64(n)*w.vRecoil)
				a.Vs.AddScaledSelf(w.emissionKick(gen, n), w.vRecoil)
			}
			a.Xs.AddScaledSelf(a.Vs, w.dt)
		}
	})
}

// emissionKick returns the sum of n isotropic unit vectors.
func (w *World) emissionKick(gen *rand.Generator, n int) geom.Vec {
	if n <= explicitRecoil {
		sum := geom.Vec{}
		for k := 0; k < n; k++ {
			sum = sum.Add(gen.UnitSphere())
		}
		return sum
	}
	sigma := math.Sqrt(float64(n) / 3)
	return geom.Vec{
		gen.Normal(0, sigma), gen.Normal(0, sigma), gen.Normal(0, sigma),
	}
}

// Maintain clears the NewlyCreated flag of every atom. It runs at the end of
// each step, so an atom is new for exactly one step.
func (w *World) Maintain() {
	for i := range w.Atoms {
		w.Atoms[i].NewlyCreated = false
	}
}
