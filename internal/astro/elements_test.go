package astro

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestClassicalToVectorEquatorialCircular(t *testing.T) {
	r, v := ClassicalToVector(Elements{SemiMajorAxis: 7000}, EarthMu)

	expR := []float64{7e6, 0, 0}
	expV := []float64{0, math.Sqrt(EarthMu / 7e6), 0}
	if !floats.EqualApprox(r[:], expR, 1e-9) {
		t.Fatalf("unexpected position %v, want %v", r, expR)
	}
	if !floats.EqualApprox(v[:], expV, 1e-9) {
		t.Fatalf("unexpected velocity %v, want %v", v, expV)
	}
}

func TestClassicalToVectorPolarQuarterOrbit(t *testing.T) {
	r, v := ClassicalToVector(Elements{SemiMajorAxis: 7000, Inclination: 90, TrueAnomaly: 90}, EarthMu)

	if !floats.EqualApprox(r[:], []float64{0, 0, 7e6}, 1e-6) {
		t.Fatalf("expected position over the pole, got %v", r)
	}
	speed := math.Sqrt(EarthMu / 7e6)
	if !floats.EqualApprox(v[:], []float64{-speed, 0, 0}, 1e-6) {
		t.Fatalf("unexpected velocity %v", v)
	}
}

func TestClassicalToVectorReferenceOrbit(t *testing.T) {
	el := Elements{SemiMajorAxis: 6671, Inclination: 35, TrueAnomaly: 16}
	r, v := ClassicalToVector(el, EarthMu)

	if !scalar.EqualWithinAbs(Norm(r), 6671e3, 1e-3) {
		t.Fatalf("circular orbit radius should equal a, got %f", Norm(r))
	}
	if !scalar.EqualWithinAbs(Norm(v), math.Sqrt(EarthMu/6671e3), 1e-6) {
		t.Fatalf("circular orbit speed mismatch, got %f", Norm(v))
	}
	// z = r sin(i) sin(ν) for ω = Ω = 0
	wantZ := 6671e3 * math.Sin(35*deg2rad) * math.Sin(16*deg2rad)
	if !scalar.EqualWithinAbs(r[2], wantZ, 1e-3) {
		t.Fatalf("expected z=%f, got %f", wantZ, r[2])
	}

	r2, v2 := ClassicalToVector(el, EarthMu)
	if r != r2 || v != v2 {
		t.Fatalf("conversion must be a pure function of its inputs")
	}
}
