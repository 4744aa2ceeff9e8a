/*package scenario is a small atom imaging setup which produces the per-step
scattered photon numbers consumed by the pipeline package. A cloud of
rubidium-87 atoms is illuminated by Gaussian beams, each beam contributes one
emission channel, and photon recoil is applied to the atoms with a simple
Euler integrator.
*/
package scenario

import (
	"math"

	"github.com/phil-mansfield/gophot/geom"
)

// Physical constants in SI units.
const (
	HBar = 1.054571817e-34
	AMU  = 1.66053906660e-27
)

// Rubidium-87 D2 line.
const (
	RbMass       = 87 * AMU
	RbWavelength = 780.241e-9
	// RbGamma is the natural linewidth in rad/s.
	RbGamma = 2 * math.Pi * 6.065e6
	// RbSaturation is the saturation intensity in W/m^2.
	RbSaturation = 16.69
)

// RecoilVelocity returns the speed change of an atom of mass m (kg) which
// absorbs or emits one photon of the given wavelength (m).
func RecoilVelocity(wavelength, m float64) float64 {
	return HBar * 2 * math.Pi / wavelength / m
}

// Beam is a Gaussian beam passing through Origin along the unit vector
// Direction, with no focusing along its length.
type Beam struct {
	Origin, Direction geom.Vec
	// Power in W and 1/e radius of the intensity profile in m.
	Power, Radius float64
	// Detuning from resonance in units of the natural linewidth.
	Detuning float64
}

// ImagingBeam returns a beam along +x through the origin.
func ImagingBeam(power, radius, detuning float64) Beam {
	return Beam{
		Direction: geom.Vec{1, 0, 0},
		Power:     power, Radius: radius, Detuning: detuning,
	}
}

// Intensity returns the intensity of the beam at x in W/m^2.
func (b *Beam) Intensity(x geom.Vec) float64 {
	d := x.Sub(b.Origin)
	along := d.Dot(b.Direction)
	r2 := d.Dot(d) - along*along
	peak := b.Power / (math.Pi * b.Radius * b.Radius)
	return peak * math.Exp(-r2/(b.Radius*b.Radius))
}

// ScatteringRate returns the two-level photon scattering rate (1/s) of a
// rubidium atom at x.
func (b *Beam) ScatteringRate(x geom.Vec) float64 {
	s := b.Intensity(x) / RbSaturation
	return RbGamma / 2 * s / (1 + s + 4*b.Detuning*b.Detuning)
}
