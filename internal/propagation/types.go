package propagation

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// Vector is a Cartesian position in km.
type Vector struct {
	X, Y, Z float64
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Slice returns v as a 3-element slice.
func (v Vector) Slice() []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return floats.Norm(v.Slice(), 2)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vector) float64 {
	return floats.Distance(a.Slice(), b.Slice(), 2)
}

// Model is a propagator-ready orbital state for one satellite.
// Implementations must be immutable and safe for concurrent use.
type Model interface {
	// PositionAt returns the TEME position at t. ok is false when the model
	// cannot produce a position for t (decayed, diverged, ...).
	PositionAt(t time.Time) (pos Vector, ok bool)
}
