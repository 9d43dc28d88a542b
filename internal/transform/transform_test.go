package transform

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{"J2000.0 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{"Unix epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 2440587.5},
		// Vallado Example 3-15: April 6, 2004, 07:51:28.386 UTC
		{"Vallado example date", time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC), 2453101.827411875},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.time)
			if diff := math.Abs(got - tt.expected); diff > 1e-6 {
				t.Errorf("JulianDate(%v) = %.10f, want %.10f (diff=%.2e)", tt.time, got, tt.expected, diff)
			}
		})
	}
}

// TestGMST validates GMST against go-satellite's GSTimeFromDate (same IAU-82 model).
func TestGMST(t *testing.T) {
	times := []time.Time{
		time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC),
		time.Date(2026, 2, 6, 4, 1, 0, 0, time.UTC),
	}

	for _, tm := range times {
		t.Run(tm.Format(time.RFC3339), func(t *testing.T) {
			ours := GMST(tm)
			ref := satellite.GSTimeFromDate(tm.Year(), int(tm.Month()), tm.Day(), tm.Hour(), tm.Minute(), tm.Second())
			if diff := math.Abs(ours - ref); diff > 1e-8 {
				t.Errorf("GMST = %.12f rad, go-satellite = %.12f rad (diff=%.2e)", ours, ref, diff)
			}
		})
	}
}

// TestTEMEToECEF checks the rotation against go-satellite's ECIToECEF.
func TestTEMEToECEF(t *testing.T) {
	tests := []struct {
		name string
		teme PositionTEME
		time time.Time
	}{
		{
			name: "Vallado example 3-15",
			teme: PositionTEME{X: 5094.18016, Y: 6127.64465, Z: 6380.34453, VX: -4.746131487, VY: 0.786598499, VZ: 5.531931288},
			time: time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC),
		},
		{
			name: "LEO polar",
			teme: PositionTEME{X: 0, Y: 0, Z: 6978.0, VX: 7.4},
			time: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gmst := satellite.GSTimeFromDate(
				tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second(),
			)

			ours := TEMEToECEFWithGMST(tt.teme, gmst)
			ref := satellite.ECIToECEF(satellite.Vector3{X: tt.teme.X, Y: tt.teme.Y, Z: tt.teme.Z}, gmst)

			const tolerance = 1e-3 // km
			if math.Abs(ours.X-ref.X) > tolerance || math.Abs(ours.Y-ref.Y) > tolerance || math.Abs(ours.Z-ref.Z) > tolerance {
				t.Errorf("position mismatch: ours [%.4f %.4f %.4f], ref [%.4f %.4f %.4f]",
					ours.X, ours.Y, ours.Z, ref.X, ref.Y, ref.Z)
			}
		})
	}
}

func TestTEMEToECEFVelocity(t *testing.T) {
	ecef := TEMEToECEFWithGMST(PositionTEME{X: 6778.0, VY: 7.5}, 0)

	if math.Abs(ecef.X-6778.0) > 1e-9 {
		t.Errorf("X = %.6f, want 6778", ecef.X)
	}
	want := 7.5 - OmegaEarth*6778.0
	if math.Abs(ecef.VY-want) > 1e-9 {
		t.Errorf("VY = %.6f km/s, want %.6f", ecef.VY, want)
	}
}

func TestECEFToGeodetic(t *testing.T) {
	tests := []struct {
		name          string
		x, y, z       float64
		lat, lon, alt float64
	}{
		{"equator prime meridian 400km", wgs84A + 400, 0, 0, 0, 0, 400},
		{"equator 90E", 0, wgs84A + 550, 0, 0, 90, 550},
		{"north pole", 0, 0, 6356.752314 + 800, 90, 0, 800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ECEFToGeodetic(tt.x, tt.y, tt.z)
			if math.Abs(g.LatDeg-tt.lat) > 1e-6 {
				t.Errorf("lat = %.6f, want %.6f", g.LatDeg, tt.lat)
			}
			if math.Abs(g.LonDeg-tt.lon) > 1e-6 {
				t.Errorf("lon = %.6f, want %.6f", g.LonDeg, tt.lon)
			}
			if math.Abs(g.AltKm-tt.alt) > 1e-3 {
				t.Errorf("alt = %.4f km, want %.4f", g.AltKm, tt.alt)
			}
		})
	}
}

func TestSubSatellitePointAltitudePreserved(t *testing.T) {
	// A point on the TEME z-axis is unaffected by the GMST rotation.
	g := SubSatellitePoint(PositionTEME{Z: 6356.752314 + 420}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if math.Abs(g.LatDeg-90) > 1e-6 || math.Abs(g.AltKm-420) > 1e-3 {
		t.Errorf("SubSatellitePoint = %+v, want pole at 420 km", g)
	}
}
