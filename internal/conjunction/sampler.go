package conjunction

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/star/conjunct/internal/catalog"
	"github.com/star/conjunct/internal/propagation"
)

// Default sampling parameters.
const (
	DefaultWindow = 24 * time.Hour
	DefaultStep   = 5 * time.Minute
)

// ErrInvalidWindow is returned when the window length or step is not positive
// or is longer than a prediction allows.
var ErrInvalidWindow = errors.New("invalid window")

// Window is a fixed-cadence forward sweep: instants Start + k*Step for every
// k >= 0 with k*Step < Length.
type Window struct {
	Start  time.Time
	Length time.Duration
	Step   time.Duration
}

// Validate reports ErrInvalidWindow for a non-positive length or step.
func (w Window) Validate() error {
	if w.Length <= 0 || w.Step <= 0 {
		return ErrInvalidWindow
	}
	return nil
}

// Samples returns the number of instants in the window.
func (w Window) Samples() int {
	if w.Validate() != nil {
		return 0
	}
	n := w.Length / w.Step
	if w.Length%w.Step != 0 {
		n++
	}
	return int(n)
}

// Instant returns the k-th sample instant.
func (w Window) Instant(k int) time.Time {
	return w.Start.Add(time.Duration(k) * w.Step)
}

// Approach is the outcome of a sweep. Found is false when no instant had a
// position for both records; the remaining fields except the counts are then
// zero.
type Approach struct {
	Found        bool
	DistanceKm   float64
	At           time.Time
	Index        int
	Samples      int
	ValidSamples int
	PositionA    propagation.Vector
	PositionB    propagation.Vector
}

// Sampler sweeps windows for the minimum separation of two records.
// It is read-only and safe for concurrent use.
type Sampler struct {
	prop    Propagator
	workers int
}

// NewSampler creates a Sampler that propagates up to workers instants in
// parallel. workers <= 0 selects runtime.NumCPU().
func NewSampler(prop Propagator, workers int) *Sampler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Sampler{prop: prop, workers: workers}
}

type sample struct {
	ok   bool
	dist float64
	a, b propagation.Vector
}

// MinimumApproach samples w and returns the smallest separation between a and
// b. Instants where either position is unavailable are skipped. Ties keep the
// earliest instant. The result does not depend on worker scheduling.
func (s *Sampler) MinimumApproach(ctx context.Context, a, b *catalog.Record, w Window) (Approach, error) {
	if err := w.Validate(); err != nil {
		return Approach{}, err
	}

	n := w.Samples()
	samples := make([]sample, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for k := 0; k < n; k++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t := w.Instant(k)
			pa, ok := s.prop.PositionAt(a, t)
			if !ok {
				return nil
			}
			pb, ok := s.prop.PositionAt(b, t)
			if !ok {
				return nil
			}
			samples[k] = sample{ok: true, dist: propagation.Distance(pa, pb), a: pa, b: pb}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Approach{}, err
	}
	if err := ctx.Err(); err != nil {
		return Approach{}, err
	}

	return reduce(samples, w), nil
}

// reduce scans samples in index order keeping the first strict minimum.
func reduce(samples []sample, w Window) Approach {
	best := Approach{Samples: len(samples)}
	for k, smp := range samples {
		if !smp.ok {
			continue
		}
		best.ValidSamples++
		if !best.Found || smp.dist < best.DistanceKm {
			best.Found = true
			best.DistanceKm = smp.dist
			best.At = w.Instant(k)
			best.Index = k
			best.PositionA = smp.a
			best.PositionB = smp.b
		}
	}
	return best
}
