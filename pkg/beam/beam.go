// Package beam models the incoming particle beam: its direction in the
// patient coordinate system, derived from the gantry and couch angles, and
// the conversion between proton energy and water-equivalent range.
package beam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Normalize scales a direction to unit length. A zero vector is rejected,
// matching the tracer's refusal of degenerate directions.
func Normalize(d [3]float64) ([3]float64, error) {
	norm := floats.Norm(d[:], 2)
	if norm == 0 {
		return d, fmt.Errorf("cannot normalize zero direction")
	}
	floats.Scale(1/norm, d[:])
	return d, nil
}

// DirectionFromAngles returns the unit beam direction (source toward
// patient) for the given gantry and couch angles in degrees. At gantry 0
// and couch 0 the beam points along +y; the gantry rotates it about the z
// axis, the couch about the y axis.
func DirectionFromAngles(gantryDeg, couchDeg float64) [3]float64 {
	d := [3]float64{0, 1, 0}
	d = rotate(d, gantryDeg*math.Pi/180, 2)
	d = rotate(d, couchDeg*math.Pi/180, 1)
	// rotations of a unit vector stay unit length, so Normalize cannot fail
	d, _ = Normalize(d)
	return d
}

// rotate applies a right-handed rotation of angle radians about the given
// axis (0=x, 1=y, 2=z).
func rotate(v [3]float64, angle float64, axis int) [3]float64 {
	sin, cos := math.Sincos(angle)
	switch axis {
	case 0:
		return [3]float64{
			v[0],
			v[1]*cos - v[2]*sin,
			v[1]*sin + v[2]*cos,
		}
	case 1:
		return [3]float64{
			v[0]*cos + v[2]*sin,
			v[1],
			-v[0]*sin + v[2]*cos,
		}
	default:
		return [3]float64{
			v[0]*cos - v[1]*sin,
			v[0]*sin + v[1]*cos,
			v[2],
		}
	}
}

// RangeToEnergy converts a proton water-equivalent range r80 (cm, position
// of the 80% dose level in the distal falloff) to the incident beam energy
// in MeV, using the fit by Grevillot et al. to the NIST/ICRU database.
func RangeToEnergy(r80 float64) float64 {
	if r80 <= 0 {
		return 0
	}
	l := math.Log(r80)
	return math.Exp(3.464048 + 0.561372013*l - 0.004900892*l*l + 0.001684756748*l*l*l)
}

// EnergyToRange converts a proton beam energy (MeV) to the water-equivalent
// range r80 in cm. Inverse fit of RangeToEnergy, from the same reference.
func EnergyToRange(energy float64) float64 {
	if energy <= 0 {
		return 0
	}
	l := math.Log(energy)
	return math.Exp(-5.5064 + 1.2193*l + 0.15248*l*l - 0.013296*l*l*l)
}
