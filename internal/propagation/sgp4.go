package propagation

import (
	"errors"
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/star/conjunct/internal/tle"
	"github.com/star/conjunct/internal/transform"
)

// SGP4 library: github.com/joshuaferrara/go-satellite (pure Go, WGS-84 constants).
//
// satellite.Propagate takes the Satellite by value, so SGP4 error codes raised
// during propagation are not visible here. Failures are detected from the
// output instead: NaN/Inf or an implausible orbital radius.
//
// The library resolves time in whole seconds. Fractional instants are served
// by propagating the two bracketing seconds and joining them with a cubic
// Hermite spline built from the propagated velocities.

// Plausible orbital radius range; below the lower bound the object has decayed.
const (
	minRadiusKm = 6200.0
	maxRadiusKm = 50000.0
)

// ErrPropagation is wrapped by every SGP4 propagation failure.
var ErrPropagation = errors.New("sgp4 propagation failed")

// SGP4 wraps the go-satellite model for a single satellite.
type SGP4 struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4 initializes the SGP4 model from a decoded entry.
//
// The entry must come from tle.ParseEntry: go-satellite calls log.Fatal on
// columns it cannot read.
func NewSGP4(e tle.Entry) (*SGP4, error) {
	sat := satellite.TLEToSat(e.Line1, e.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", e.NORADID, sat.Error, sat.ErrorStr)
	}
	return &SGP4{sat: sat, noradID: e.NORADID}, nil
}

// NewModel is the default catalog model constructor.
func NewModel(e tle.Entry) (Model, error) {
	m, err := NewSGP4(e)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Propagate returns the TEME state at t with sub-second precision.
func (p *SGP4) Propagate(t time.Time) (transform.PositionTEME, error) {
	t = t.UTC()
	whole := t.Truncate(time.Second)

	s0, err := p.propagateWhole(whole)
	if err != nil {
		return transform.PositionTEME{}, err
	}

	frac := t.Sub(whole).Seconds()
	if frac == 0 {
		return s0, nil
	}

	s1, err := p.propagateWhole(whole.Add(time.Second))
	if err != nil {
		return transform.PositionTEME{}, err
	}

	return hermite(s0, s1, frac), nil
}

// PositionAt implements Model.
func (p *SGP4) PositionAt(t time.Time) (Vector, bool) {
	s, err := p.Propagate(t)
	if err != nil {
		return Vector{}, false
	}
	return Vector{X: s.X, Y: s.Y, Z: s.Z}, true
}

func (p *SGP4) propagateWhole(t time.Time) (transform.PositionTEME, error) {
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	for _, c := range [...]float64{pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return transform.PositionTEME{}, fmt.Errorf("%w for NORAD %d: output is NaN/Inf", ErrPropagation, p.noradID)
		}
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < minRadiusKm || mag > maxRadiusKm {
		return transform.PositionTEME{}, fmt.Errorf("%w for NORAD %d: unreasonable position magnitude %.1f km", ErrPropagation, p.noradID, mag)
	}

	return transform.PositionTEME{
		X:  pos.X,
		Y:  pos.Y,
		Z:  pos.Z,
		VX: vel.X,
		VY: vel.Y,
		VZ: vel.Z,
	}, nil
}

// hermite interpolates between states one second apart at fraction s in [0, 1).
func hermite(a, b transform.PositionTEME, s float64) transform.PositionTEME {
	s2 := s * s
	s3 := s2 * s

	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	d00 := 6*s2 - 6*s
	d10 := 3*s2 - 4*s + 1
	d01 := -6*s2 + 6*s
	d11 := 3*s2 - 2*s

	// The interval is one second, so velocities in km/s scale by 1.
	pos := func(p0, v0, p1, v1 float64) float64 { return h00*p0 + h10*v0 + h01*p1 + h11*v1 }
	vel := func(p0, v0, p1, v1 float64) float64 { return d00*p0 + d10*v0 + d01*p1 + d11*v1 }

	return transform.PositionTEME{
		X:  pos(a.X, a.VX, b.X, b.VX),
		Y:  pos(a.Y, a.VY, b.Y, b.VY),
		Z:  pos(a.Z, a.VZ, b.Z, b.VZ),
		VX: vel(a.X, a.VX, b.X, b.VX),
		VY: vel(a.Y, a.VY, b.Y, b.VY),
		VZ: vel(a.Z, a.VZ, b.Z, b.VZ),
	}
}
