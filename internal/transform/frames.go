// Package transform converts propagated TEME (True Equator Mean Equinox)
// positions into Earth-fixed and geodetic coordinates.
//
// TEME → ECEF uses a GMST-only rotation (no polar motion or equation of the
// equinoxes), good to roughly 50 m. Reference: Vallado, "Fundamentals of
// Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"
)

// PositionTEME is a position and velocity in the TEME frame (km, km/s).
type PositionTEME struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// PositionECEF is a position and velocity in the ECEF frame (km, km/s).
type PositionECEF struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// TEMEToECEF rotates a TEME state into ECEF at UTC time t.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST rotates a TEME state into ECEF using a precomputed GMST
// angle in radians:
//
//	r_ECEF = R3(θ) r_TEME
//	v_ECEF = R3(θ) v_TEME - ω × r_ECEF
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	x := teme.X*cosG + teme.Y*sinG
	y := -teme.X*sinG + teme.Y*cosG

	vx := teme.VX*cosG + teme.VY*sinG
	vy := -teme.VX*sinG + teme.VY*cosG

	return PositionECEF{
		X:  x,
		Y:  y,
		Z:  teme.Z,
		VX: vx + OmegaEarth*y,
		VY: vy - OmegaEarth*x,
		VZ: teme.VZ,
	}
}
