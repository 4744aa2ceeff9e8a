/*package geom contains the small amount of vector and grid arithmetic needed
to place photon emissions in space.
*/
package geom

import (
	"math"
)

// Vec is a three dimensional vector. Positions are in meters.
type Vec [3]float64

// Add returns v + u.
func (v Vec) Add(u Vec) Vec { return Vec{v[0] + u[0], v[1] + u[1], v[2] + u[2]} }

// Sub returns v - u.
func (v Vec) Sub(u Vec) Vec { return Vec{v[0] - u[0], v[1] - u[1], v[2] - u[2]} }

// Scale returns s * v.
func (v Vec) Scale(s float64) Vec { return Vec{v[0] * s, v[1] * s, v[2] * s} }

// Dot returns the inner product of v and u.
func (v Vec) Dot(u Vec) float64 { return v[0]*u[0] + v[1]*u[1] + v[2]*u[2] }

// Norm returns the Euclidean length of v.
func (v Vec) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// AddScaledSelf performs v += s * u in place.
func (v *Vec) AddScaledSelf(u Vec, s float64) {
	v[0] += s * u[0]
	v[1] += s * u[1]
	v[2] += s * u[2]
}

// IsFinite returns false if any component is NaN or infinite.
func (v Vec) IsFinite() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}
