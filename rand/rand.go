/*package rand provides random number generators which are owned by a single
goroutine at a time. Nothing in this package is safe for concurrent use: code
which samples from several goroutines gives each one its own Generator.
*/
package rand

import (
	"math"
	mrand "math/rand/v2"
	"time"

	"github.com/phil-mansfield/gophot/geom"
)

// GeneratorType selects the underlying bit source.
type GeneratorType int

const (
	PCG GeneratorType = iota
	ChaCha8
)

// Generator wraps a seeded source with the distributions used by the
// emission code.
type Generator struct {
	r    *mrand.Rand
	seed uint64
}

// New creates a Generator of the given type with a fixed seed.
func New(gt GeneratorType, seed uint64) *Generator {
	var src mrand.Source
	switch gt {
	case ChaCha8:
		var key [32]byte
		s := seed
		for i := 0; i < 4; i++ {
			s = splitMix(s)
			for j := 0; j < 8; j++ {
				key[8*i+j] = byte(s >> (8 * j))
			}
		}
		src = mrand.NewChaCha8(key)
	default:
		src = mrand.NewPCG(seed, splitMix(seed))
	}
	return &Generator{r: mrand.New(src), seed: seed}
}

// NewTimeSeed creates a Generator seeded from the process-wide entropy source
// mixed with the current time.
func NewTimeSeed(gt GeneratorType) *Generator {
	return New(gt, EntropySeed())
}

// EntropySeed returns a fresh seed drawn from the runtime's randomly seeded
// global source.
func EntropySeed() uint64 {
	return mrand.Uint64() ^ uint64(time.Now().UnixNano())
}

// NewGenerators returns n independent generators. If seed is zero every
// generator is seeded from process entropy, otherwise the seeds are derived
// deterministically from seed so that runs can be repeated.
func NewGenerators(gt GeneratorType, seed uint64, n int) []*Generator {
	gens := make([]*Generator, n)
	s := seed
	for i := range gens {
		if seed == 0 {
			gens[i] = NewTimeSeed(gt)
		} else {
			s = splitMix(s + uint64(i))
			gens[i] = New(gt, s)
		}
	}
	return gens
}

// Seed returns the seed the generator was created with.
func (gen *Generator) Seed() uint64 { return gen.seed }

// Uniform returns a uniformly distributed number in [low, high).
func (gen *Generator) Uniform(low, high float64) float64 {
	return low + (high-low)*gen.r.Float64()
}

// UniformInt returns a uniformly distributed integer in [low, high).
func (gen *Generator) UniformInt(low, high int) int {
	return low + gen.r.IntN(high-low)
}

// UnitSphere returns a point drawn uniformly from the surface of the unit
// sphere (Marsaglia, 1972).
func (gen *Generator) UnitSphere() geom.Vec {
	for {
		u := 2*gen.r.Float64() - 1
		v := 2*gen.r.Float64() - 1
		s := u*u + v*v
		if s > 0 && s < 1 {
			f := 2 * math.Sqrt(1-s)
			return geom.Vec{u * f, v * f, 1 - 2*s}
		}
	}
}

// Normal returns a normally distributed number with the given mean and
// standard deviation.
func (gen *Generator) Normal(mu, sigma float64) float64 {
	return mu + sigma*gen.r.NormFloat64()
}

// poissonCutoff is the mean above which Poisson switches to a normal
// approximation.
const poissonCutoff = 30

// Poisson returns a Poisson distributed count with the given mean. Means
// that are not positive (including NaN) return zero.
func (gen *Generator) Poisson(mean float64) float64 {
	if !(mean > 0) {
		return 0
	}
	if mean > poissonCutoff {
		k := math.Round(gen.Normal(mean, math.Sqrt(mean)))
		return math.Max(k, 0)
	}

	limit, p, k := math.Exp(-mean), 1.0, -1.0
	for p > limit {
		p *= gen.r.Float64()
		k++
	}
	return k
}

func splitMix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
