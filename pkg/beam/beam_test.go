package beam

import (
	"math"
	"testing"
)

const tol = 1e-9

func vecClose(a, b [3]float64, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// TestDirectionFromAngles verifies the cardinal gantry positions against
// the IEC-style convention: gantry 0 points along +y, the gantry rotates
// about z, the couch about y
func TestDirectionFromAngles(t *testing.T) {
	cases := []struct {
		gantry, couch float64
		want          [3]float64
	}{
		{0, 0, [3]float64{0, 1, 0}},
		{90, 0, [3]float64{-1, 0, 0}},
		{180, 0, [3]float64{0, -1, 0}},
		{270, 0, [3]float64{1, 0, 0}},
		// couch rotation about y leaves a +y beam unchanged
		{0, 90, [3]float64{0, 1, 0}},
		{90, 90, [3]float64{0, 0, 1}},
	}

	for _, c := range cases {
		got := DirectionFromAngles(c.gantry, c.couch)
		if !vecClose(got, c.want, tol) {
			t.Errorf("gantry %g couch %g: direction = %v, want %v", c.gantry, c.couch, got, c.want)
		}
	}
}

// TestDirectionIsUnit verifies normalization for arbitrary angle pairs
func TestDirectionIsUnit(t *testing.T) {
	for _, gantry := range []float64{0, 17, 45, 123.4, 300} {
		for _, couch := range []float64{0, -30, 75} {
			d := DirectionFromAngles(gantry, couch)
			norm := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
			if math.Abs(norm-1) > tol {
				t.Errorf("gantry %g couch %g: |d| = %v, want 1", gantry, couch, norm)
			}
		}
	}
}

// TestNormalize verifies scaling and rejection of the zero vector
func TestNormalize(t *testing.T) {
	d, err := Normalize([3]float64{3, 0, 4})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !vecClose(d, [3]float64{0.6, 0, 0.8}, tol) {
		t.Errorf("Normalize(3,0,4) = %v, want (0.6,0,0.8)", d)
	}

	if _, err := Normalize([3]float64{0, 0, 0}); err == nil {
		t.Error("zero vector accepted")
	}
}

// TestRangeEnergyRoundTrip checks that the two Grevillot fits are close
// inverses over the clinical energy range
func TestRangeEnergyRoundTrip(t *testing.T) {
	for _, energy := range []float64{70, 100, 150, 200, 230} {
		r80 := EnergyToRange(energy)
		if r80 <= 0 {
			t.Fatalf("EnergyToRange(%g) = %g, want positive", energy, r80)
		}
		back := RangeToEnergy(r80)
		// the fits are independent regressions; agree to a fraction of a percent
		if math.Abs(back-energy)/energy > 0.01 {
			t.Errorf("round trip %g MeV -> %g cm -> %g MeV", energy, r80, back)
		}
	}
}

// TestRangeEnergyMonotone verifies that deeper ranges require higher
// energies and that the zero edge cases hold
func TestRangeEnergyMonotone(t *testing.T) {
	prev := 0.0
	for _, r80 := range []float64{1, 5, 10, 20, 30} {
		e := RangeToEnergy(r80)
		if e <= prev {
			t.Errorf("RangeToEnergy(%g) = %g, not increasing (prev %g)", r80, e, prev)
		}
		prev = e
	}

	if RangeToEnergy(0) != 0 || RangeToEnergy(-1) != 0 {
		t.Error("non-positive range should map to zero energy")
	}
	if EnergyToRange(0) != 0 || EnergyToRange(-5) != 0 {
		t.Error("non-positive energy should map to zero range")
	}
}
