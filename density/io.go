package density

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
)

// ReadHistogram reads a file written by Histogram.Flush. It returns an error
// if the file does not contain exactly cells^3 values.
func ReadHistogram(path string, cells int) ([]uint32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	// Older files end every value with a comma.
	b = bytes.TrimSuffix(b, []byte{','})

	n := cells * cells * cells
	vals := make([]uint32, 0, n)
	for _, tok := range bytes.Split(b, []byte{','}) {
		v, err := strconv.ParseUint(string(bytes.TrimSpace(tok)), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: cell %d: %w", path, len(vals), err)
		}
		vals = append(vals, uint32(v))
	}

	if len(vals) != n {
		return nil, fmt.Errorf(
			"%s contains %d cells, but a grid with %d cells on a side "+
				"requires %d.", path, len(vals), cells, n,
		)
	}
	return vals, nil
}

// Profile collapses a histogram onto one axis (0, 1 or 2 for x, y, z) by
// summing over the other two.
func Profile(vals []uint32, cells, axis int) []float64 {
	prof := make([]float64, cells)
	area := cells * cells
	for idx, v := range vals {
		var i int
		switch axis {
		case 0:
			i = idx % cells
		case 1:
			i = (idx % area) / cells
		default:
			i = idx / area
		}
		prof[i] += float64(v)
	}
	return prof
}

// CellCenters returns the physical coordinate of the center of each cell
// along one axis.
func CellCenters(domainSize float64, cells int) []float64 {
	dx := domainSize / float64(cells)
	lo := -float64(cells/2) * dx
	xs := make([]float64, cells)
	for i := range xs {
		xs[i] = lo + dx*(float64(i)+0.5)
	}
	return xs
}
