// Package conjunction finds the closest approach between two catalog
// records over a forward time window and classifies the collision risk.
package conjunction

import (
	"time"

	"github.com/star/conjunct/internal/catalog"
	"github.com/star/conjunct/internal/metrics"
	"github.com/star/conjunct/internal/propagation"
)

// Propagator returns the TEME position of a record at an instant.
// ok == false marks the sample unavailable; it is never an error.
// Implementations must be safe for concurrent use.
type Propagator interface {
	PositionAt(r *catalog.Record, t time.Time) (pos propagation.Vector, ok bool)
}

// ModelPropagator delegates to each record's propagation model.
type ModelPropagator struct{}

// PositionAt implements Propagator.
func (ModelPropagator) PositionAt(r *catalog.Record, t time.Time) (propagation.Vector, bool) {
	pos, ok := r.Model.PositionAt(t)
	if !ok {
		metrics.IncPropagationUnavailable()
	}
	return pos, ok
}
