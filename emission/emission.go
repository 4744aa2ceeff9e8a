/*package emission turns per-atom scattered photon counts into individual
photon emission events with isotropic directions.
*/
package emission

import (
	"math"

	"github.com/phil-mansfield/gophot/geom"
	"github.com/phil-mansfield/gophot/rand"
)

// Event is a single photon emitted from Position in the unit Direction.
type Event struct {
	Position, Direction geom.Vec
}

// ScatterCount converts the per-channel scattered photon numbers of one atom
// into an integer photon count. Every channel is rounded to the nearest
// integer separately and the results are summed. Negative and NaN channels
// count as zero and a single channel is capped at math.MaxUint32.
func ScatterCount(channels []float64) int {
	n := 0
	for _, x := range channels {
		if !(x > 0) {
			continue
		}
		r := math.Round(x)
		if r > math.MaxUint32 {
			r = math.MaxUint32
		}
		n += int(r)
	}
	return n
}

// Sample appends n events at pos to out, each with an independently drawn
// isotropic direction, and returns the extended slice. Non-positive n
// appends nothing. gen must not be shared with other goroutines.
func Sample(gen *rand.Generator, pos geom.Vec, n int, out []Event) []Event {
	for i := 0; i < n; i++ {
		out = append(out, Event{Position: pos, Direction: gen.UnitSphere()})
	}
	return out
}
