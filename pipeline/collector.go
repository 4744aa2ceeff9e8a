package pipeline

import (
	"github.com/phil-mansfield/gophot"
	"github.com/phil-mansfield/gophot/density"
	"github.com/phil-mansfield/gophot/emission"
	"github.com/phil-mansfield/gophot/rand"
)

// Collector samples the emission events of a set of atoms with a fixed pool
// of workers. Each worker owns a generator and an event buffer which are
// reused from step to step.
type Collector struct {
	workers int
	gens    []*rand.Generator
	bufs    [][]emission.Event
	counted []int
	dropped []int
}

// NewCollector creates a Collector with the given number of workers. If seed
// is zero the workers are seeded from process entropy.
func NewCollector(workers int, seed uint64) *Collector {
	if workers < 1 {
		workers = 1
	}
	return &Collector{
		workers: workers,
		gens:    rand.NewGenerators(rand.PCG, seed, workers),
		bufs:    make([][]emission.Event, workers),
		counted: make([]int, workers),
		dropped: make([]int, workers),
	}
}

// Workers returns the size of the worker pool.
func (c *Collector) Workers() int { return c.workers }

// chunk returns the range of atoms handled by worker.
func (c *Collector) chunk(worker, n int) (start, end int) {
	return worker * n / c.workers, (worker + 1) * n / c.workers
}

// chanSample is run on a single goroutine. It samples every atom in the
// worker's chunk into the worker's buffer and sends the worker ID to out.
func (c *Collector) chanSample(worker int, atoms []gophot.Atom, out chan<- int) {
	gen, buf := c.gens[worker], c.bufs[worker][:0]
	start, end := c.chunk(worker, len(atoms))
	for i := start; i < end; i++ {
		a := &atoms[i]
		if !a.Emits() {
			continue
		}
		n := emission.ScatterCount(a.Scattered)
		buf = emission.Sample(gen, a.Xs, n, buf)
	}
	c.bufs[worker] = buf
	out <- worker
}

// Collect samples the events of every atom and returns them as one batch
// appended to out. Each event appears exactly once, but events from
// different atoms may be in any order.
func (c *Collector) Collect(atoms []gophot.Atom, out []emission.Event) []emission.Event {
	done := make(chan int, c.workers)
	for id := 0; id < c.workers; id++ {
		go c.chanSample(id, atoms, done)
	}

	// Merge worker buffers in the order the workers finish.
	for i := 0; i < c.workers; i++ {
		id := <-done
		out = append(out, c.bufs[id]...)
	}
	return out
}

// chanCount is like chanSample but counts events into h instead of keeping
// them.
func (c *Collector) chanCount(
	worker int, atoms []gophot.Atom, h *density.Histogram, out chan<- int,
) {
	gen, buf := c.gens[worker], c.bufs[worker]
	counted, dropped := 0, 0
	start, end := c.chunk(worker, len(atoms))
	for i := start; i < end; i++ {
		a := &atoms[i]
		if !a.Emits() {
			continue
		}
		n := emission.ScatterCount(a.Scattered)
		buf = emission.Sample(gen, a.Xs, n, buf[:0])
		for j := range buf {
			if h.Count(buf[j].Position) {
				counted++
			} else {
				dropped++
			}
		}
	}
	c.bufs[worker] = buf[:0]
	c.counted[worker], c.dropped[worker] = counted, dropped
	out <- worker
}

// CountInto samples the events of every atom and counts each one into h.
// It returns the number of events counted and the number dropped for
// falling outside the histogram.
func (c *Collector) CountInto(
	atoms []gophot.Atom, h *density.Histogram,
) (counted, dropped int) {
	done := make(chan int, c.workers)
	for id := 0; id < c.workers; id++ {
		go c.chanCount(id, atoms, h, done)
	}
	for i := 0; i < c.workers; i++ {
		id := <-done
		counted += c.counted[id]
		dropped += c.dropped[id]
	}
	return counted, dropped
}
