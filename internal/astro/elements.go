// Package astro converts classical orbital elements into Cartesian state vectors.
package astro

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const (
	// EarthMu is Earth's gravitational parameter in m^3/s^2.
	EarthMu = 3.986004418e14

	deg2rad = math.Pi / 180
)

// Elements is a classical orbital element set. Distances are in km and angles
// in degrees.
type Elements struct {
	SemiMajorAxis float64 `yaml:"semi_major_axis"`
	Eccentricity  float64 `yaml:"eccentricity"`
	Inclination   float64 `yaml:"inclination"`
	RAAN          float64 `yaml:"right_ascension"`
	ArgPeriapsis  float64 `yaml:"argument_of_periapsis"`
	TrueAnomaly   float64 `yaml:"true_anomaly"`
}

// ClassicalToVector returns the inertial position (m) and velocity (m/s) for
// the given elements about a body with gravitational parameter mu (m^3/s^2).
func ClassicalToVector(el Elements, mu float64) (r, v [3]float64) {
	a := el.SemiMajorAxis * 1000
	e := el.Eccentricity
	p := a * (1 - e*e)
	if scalar.EqualWithinAbs(p, 0, 1e-9) {
		// Degenerate (rectilinear) orbit, nothing sensible to rotate.
		return r, v
	}

	sinν, cosν := math.Sincos(el.TrueAnomaly * deg2rad)
	rPQW := mat.NewVecDense(3, []float64{p * cosν / (1 + e*cosν), p * sinν / (1 + e*cosν), 0})
	vPQW := mat.NewVecDense(3, []float64{-math.Sqrt(mu/p) * sinν, math.Sqrt(mu/p) * (e + cosν), 0})

	rot := PQW2ECI(el.Inclination*deg2rad, el.ArgPeriapsis*deg2rad, el.RAAN*deg2rad)
	var rECI, vECI mat.VecDense
	rECI.MulVec(rot, rPQW)
	vECI.MulVec(rot, vPQW)
	for i := 0; i < 3; i++ {
		r[i] = rECI.AtVec(i)
		v[i] = vECI.AtVec(i)
	}
	return r, v
}

// PQW2ECI returns the perifocal to inertial rotation R3(-Ω)·R1(-i)·R3(-ω).
func PQW2ECI(i, ω, Ω float64) *mat.Dense {
	var m mat.Dense
	m.Mul(R3(-Ω), R1(-i))
	m.Mul(&m, R3(-ω))
	return &m
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// Norm returns the Euclidean norm of a 3-vector.
func Norm(v [3]float64) float64 {
	return floats.Norm(v[:], 2)
}
