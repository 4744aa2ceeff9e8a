package geom

import (
	"math"
)

// Grid provides an interface for reasoning over a 1D slice as if it were a
// 3D grid. Cell coordinates are signed: a Grid with Origin -n/2 covers the
// cells [-n/2, n - n/2) along each axis, which centers it on the origin.
type Grid struct {
	CellBounds
	Length, Area, Volume int
	uBounds [3]int
}

// CellBounds represents a bounding box aligned to grid cells.
type CellBounds struct {
	Origin, Width [3]int
}

// NewGrid returns a new Grid instance.
func NewGrid(origin [3]int, width [3]int) *Grid {
	g := &Grid{}
	g.Init(origin, width)
	return g
}

// NewCenteredGrid returns a cubic grid with the given number of cells on a
// side whose cell coordinates are offset by cells/2 (integer division) so
// that the physical origin lies at the center of the grid.
func NewCenteredGrid(cells int) *Grid {
	o := -(cells / 2)
	return NewGrid([3]int{o, o, o}, [3]int{cells, cells, cells})
}

// Init initializes a Grid instance.
func (g *Grid) Init(origin [3]int, width [3]int) {
	g.Origin = origin
	g.Width = width

	g.Length = width[0]
	g.Area = width[0] * width[1]
	g.Volume = width[0] * width[1] * width[2]

	for i := 0; i < 3; i++ {
		g.uBounds[i] = g.Origin[i] + g.Width[i]
	}
}

// Idx returns the grid index corresponding to a set of cell coordinates.
// Indices are row-major with x varying fastest and z slowest.
func (g *Grid) Idx(x, y, z int) int {
	return ((x - g.Origin[0]) + (y-g.Origin[1])*g.Length +
		(z-g.Origin[2])*g.Area)
}

// IdxCheck returns an index and true if the given coordinate are valid and
// false otherwise.
func (g *Grid) IdxCheck(x, y, z int) (idx int, ok bool) {
	if !g.BoundsCheck(x, y, z) {
		return -1, false
	}

	return g.Idx(x, y, z), true
}

// BoundsCheck returns true if the given coordinates are within the Grid and
// false otherwise. The bounds are half-open on every axis.
func (g *Grid) BoundsCheck(x, y, z int) bool {
	return (g.Origin[0] <= x && g.Origin[1] <= y && g.Origin[2] <= z) &&
		(x < g.uBounds[0] && y < g.uBounds[1] &&
			z < g.uBounds[2])
}

// Coords returns the x, y, z offsets of a point from its grid index,
// measured from the grid's lowest corner.
func (g *Grid) Coords(idx int) (x, y, z int) {
	x = idx % g.Length
	y = (idx % g.Area) / g.Length
	z = idx / g.Area
	return x, y, z
}

// CellCoord returns floor(x / cellWidth) as an int, or ok = false if the
// result is not finite or cannot be represented. Callers are expected to
// bounds check the result.
func CellCoord(x, cellWidth float64) (c int, ok bool) {
	f := math.Floor(x / cellWidth)
	// The int conversion of an out of range float is implementation
	// specific, so anything outside +/- 2^52 is rejected up front.
	if !(f > -(1<<52) && f < 1<<52) {
		return 0, false
	}
	return int(f), true
}

// VecIdx returns the index of the cell containing v for a grid whose cells
// have the given physical width, and false if v lies outside the grid.
func (g *Grid) VecIdx(v Vec, cellWidth float64) (idx int, ok bool) {
	var c [3]int
	for k := 0; k < 3; k++ {
		if c[k], ok = CellCoord(v[k], cellWidth); !ok {
			return -1, false
		}
	}
	return g.IdxCheck(c[0], c[1], c[2])
}
