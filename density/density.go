/*package density bins photon emission positions onto a fixed cubic grid
centered on the origin.

A Histogram may be shared by any number of goroutines: Count only performs an
atomic update of a single cell, so no external locking is needed while the
step loop is running. Flush is the one operation which must not overlap with
Count.
*/
package density

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/phil-mansfield/gophot/geom"
)

// Histogram is a grid of saturating 32-bit counters. Counters never wrap:
// once a cell reaches math.MaxUint32 further counts into it are discarded.
type Histogram struct {
	CellSize   float64
	DomainSize float64
	cells      int

	g     *geom.Grid
	vals  []atomic.Uint32
	clamp atomic.Int64
}

// NewHistogram creates a Histogram spanning a cube of width domainSize
// (meters) centered on the origin with the given number of cells along each
// axis.
func NewHistogram(domainSize float64, cells int) (*Histogram, error) {
	if !(domainSize > 0) || math.IsInf(domainSize, 0) {
		return nil, fmt.Errorf(
			"Histogram domain size must be positive and finite, but is %g.",
			domainSize,
		)
	} else if cells <= 0 {
		return nil, fmt.Errorf(
			"Histogram cell number must be positive, but is %d.", cells,
		)
	}

	h := &Histogram{
		CellSize:   domainSize / float64(cells),
		DomainSize: domainSize,
		cells:      cells,
		g:          geom.NewCenteredGrid(cells),
	}
	h.vals = make([]atomic.Uint32, h.g.Volume)
	return h, nil
}

// Cells returns the number of cells along one side of the grid.
func (h *Histogram) Cells() int { return h.cells }

// Len returns the total number of cells in the grid.
func (h *Histogram) Len() int { return len(h.vals) }

// Index returns the index of the cell containing pos. Along each axis the
// cell is floor(pos / CellSize) + cells/2, and ok is false unless that lies
// in [0, cells) for all three axes.
func (h *Histogram) Index(pos geom.Vec) (idx int, ok bool) {
	return h.g.VecIdx(pos, h.CellSize)
}

// Count adds one to the cell containing pos. Positions outside the domain
// are dropped and Count returns false.
func (h *Histogram) Count(pos geom.Vec) bool {
	idx, ok := h.Index(pos)
	if !ok {
		return false
	}
	h.inc(idx)
	return true
}

func (h *Histogram) inc(idx int) {
	c := &h.vals[idx]
	for {
		old := c.Load()
		if old == math.MaxUint32 {
			h.clamp.Add(1)
			return
		}
		if c.CompareAndSwap(old, old+1) {
			return
		}
	}
}

// Cell returns the value of the cell at the given offsets from the lowest
// corner of the grid, each in [0, cells).
func (h *Histogram) Cell(x, y, z int) uint32 {
	return h.vals[x+y*h.cells+z*h.cells*h.cells].Load()
}

// Total returns the sum over all cells.
func (h *Histogram) Total() uint64 {
	sum := uint64(0)
	for i := range h.vals {
		sum += uint64(h.vals[i].Load())
	}
	return sum
}

// Saturated returns the number of counts which were discarded because their
// cell had already reached math.MaxUint32.
func (h *Histogram) Saturated() int64 { return h.clamp.Load() }

// Values copies the cell values into out in z-major order, allocating out if
// it is too short.
func (h *Histogram) Values(out []uint32) []uint32 {
	if len(out) < len(h.vals) {
		out = make([]uint32, len(h.vals))
	}
	for i := range h.vals {
		out[i] = h.vals[i].Load()
	}
	return out[:len(h.vals)]
}

// WriteTo writes every cell as a single line of comma separated integers,
// x varying fastest and z slowest.
func (h *Histogram) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var (
		n   int64
		buf []byte
	)
	for i := range h.vals {
		buf = buf[:0]
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(h.vals[i].Load()), 10)
		m, err := bw.Write(buf)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	if err := bw.WriteByte('\n'); err != nil {
		return n, err
	}
	n++
	return n, bw.Flush()
}

// Flush writes the histogram to path, replacing any existing file. It must
// only be called once all counting has finished.
func (h *Histogram) Flush(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create histogram file: %w", err)
	}
	if _, err := h.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not write histogram file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close histogram file %s: %w", path, err)
	}
	return nil
}
