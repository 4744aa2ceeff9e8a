/*package pipeline runs the per-step photon accounting: it samples emission
events for every atom in parallel and folds them into one of the output
modes, and it records the initial state of newly created atoms.

Nothing in this package starts goroutines which outlive a call. Every
parallel phase is joined before the call returns, so the caller's step loop
is the only scheduler.
*/
package pipeline

import (
	"fmt"
	"strings"
)

// Mode selects what happens to sampled photons. It is fixed for a run.
type Mode int

const (
	// Histogram bins emission positions onto a density.Histogram.
	Histogram Mode = iota
	// List appends every event to a store.Store and records initial atoms.
	List
	// Stream writes every event to a PhotonWriter.
	Stream
)

var modeNames = []string{"Histogram", "List", "Stream"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode matches a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf(
		"Mode must be one of [Histogram | List | Stream]. '%s' is not "+
			"recognized.", s,
	)
}
