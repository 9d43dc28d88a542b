package conjunction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/star/conjunct/internal/catalog"
	"github.com/star/conjunct/internal/metrics"
	"github.com/star/conjunct/internal/propagation"
	"github.com/star/conjunct/internal/transform"
)

var (
	// ErrUnknownSatellite is returned when a requested name is not in the catalog.
	ErrUnknownSatellite = errors.New("satellite not found in catalog")

	// ErrSampleBudget is returned when a window would need more samples than allowed.
	ErrSampleBudget = errors.New("window exceeds the sample budget")
)

// DefaultMaxSamples bounds a single prediction: a week at one-minute cadence.
const DefaultMaxSamples = 7 * 24 * 60

// MaxWindow is the longest window or step a prediction accepts. Element sets
// are stale long before a year has passed.
const MaxWindow = 366 * 24 * time.Hour

// CatalogSource supplies the current catalog snapshot.
type CatalogSource interface {
	Current() *catalog.Catalog
}

// Config holds predictor defaults and limits.
type Config struct {
	Window     time.Duration
	Step       time.Duration
	Workers    int
	MaxSamples int

	// Timeout bounds one prediction. Zero means no limit.
	Timeout time.Duration
}

// DefaultConfig returns the 24 h / 5 min sweep used when a request does not
// override it.
func DefaultConfig() Config {
	return Config{
		Window:     DefaultWindow,
		Step:       DefaultStep,
		MaxSamples: DefaultMaxSamples,
	}
}

// Options are per-request overrides. Zero values select the configured defaults.
type Options struct {
	WindowHours float64
	StepMinutes float64
}

// Result is the answer to one prediction request.
type Result struct {
	Sat1                string     `json:"sat1"`
	Sat2                string     `json:"sat2"`
	MinDistanceKm       *float64   `json:"min_distance_km"`
	ClosestApproachTime *time.Time `json:"closest_approach_time"`
	RiskCategory        Category   `json:"risk_category"`
	RiskMessage         string     `json:"risk_message"`
	CollisionRisk       bool       `json:"collision_risk"`
	Sampling            Sampling   `json:"sampling"`
	Positions           *Positions `json:"positions"`
}

// Determined reports whether a closest approach was found.
func (r Result) Determined() bool {
	return r.MinDistanceKm != nil
}

// Sampling describes the sweep behind a result. The reported minimum is only
// as fine as StepMinutes.
type Sampling struct {
	WindowStart  time.Time `json:"window_start"`
	WindowHours  float64   `json:"window_hours"`
	StepMinutes  float64   `json:"step_minutes"`
	Samples      int       `json:"samples"`
	ValidSamples int       `json:"valid_samples"`
}

// Positions are the sub-satellite points of both objects at closest approach.
type Positions struct {
	Sat1 GeoPoint `json:"sat1"`
	Sat2 GeoPoint `json:"sat2"`
}

// GeoPoint is a WGS-84 geodetic position.
type GeoPoint struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	AltKm float64 `json:"alt_km"`
}

// Predictor orchestrates a prediction: catalog lookup, window sweep and
// classification.
type Predictor struct {
	source  CatalogSource
	sampler *Sampler
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewPredictor creates a Predictor. Zero Window, Step or MaxSamples fields
// fall back to DefaultConfig.
func NewPredictor(source CatalogSource, prop Propagator, cfg Config, logger *slog.Logger) *Predictor {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Step <= 0 {
		cfg.Step = def.Step
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = def.MaxSamples
	}
	return &Predictor{
		source:  source,
		sampler: NewSampler(prop, cfg.Workers),
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock that sets the window start.
func (p *Predictor) WithClock(now func() time.Time) *Predictor {
	p.now = now
	return p
}

// MaxSamples returns the per-request sample budget.
func (p *Predictor) MaxSamples() int {
	return p.cfg.MaxSamples
}

// Window builds the sweep for opts starting at start.
func (p *Predictor) Window(start time.Time, opts Options) (Window, error) {
	w := Window{Start: start, Length: p.cfg.Window, Step: p.cfg.Step}

	var err error
	if opts.WindowHours != 0 {
		if w.Length, err = toDuration("hours", opts.WindowHours, time.Hour); err != nil {
			return Window{}, err
		}
	}
	if opts.StepMinutes != 0 {
		if w.Step, err = toDuration("step", opts.StepMinutes, time.Minute); err != nil {
			return Window{}, err
		}
	}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	if w.Length > MaxWindow || w.Step > MaxWindow {
		return Window{}, fmt.Errorf("%w: window %v, step %v, limit %v", ErrInvalidWindow, w.Length, w.Step, MaxWindow)
	}
	if n := w.Samples(); n <= 0 || n > p.cfg.MaxSamples {
		return Window{}, fmt.Errorf("%w: %d samples, limit %d", ErrSampleBudget, n, p.cfg.MaxSamples)
	}
	return w, nil
}

// toDuration converts a request value in unit to a duration no longer than
// MaxWindow. The range check happens before the conversion so huge values
// cannot overflow.
func toDuration(label string, v float64, unit time.Duration) (time.Duration, error) {
	if !finitePositive(v) {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidWindow, label, v)
	}
	d := v * float64(unit)
	if d > float64(MaxWindow) {
		return 0, fmt.Errorf("%w: %s=%v exceeds %v", ErrInvalidWindow, label, v, MaxWindow)
	}
	return time.Duration(d), nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Predict finds the closest approach between two named satellites over the
// window starting now. Both names are resolved against one catalog snapshot
// before any propagation happens.
func (p *Predictor) Predict(ctx context.Context, sat1, sat2 string, opts Options) (Result, error) {
	cat := p.source.Current()
	a, okA := cat.Get(sat1)
	b, okB := cat.Get(sat2)
	if !okA || !okB {
		var missing []string
		if !okA {
			missing = append(missing, fmt.Sprintf("%q", sat1))
		}
		if !okB && sat2 != sat1 {
			missing = append(missing, fmt.Sprintf("%q", sat2))
		}
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownSatellite, strings.Join(missing, ", "))
	}

	w, err := p.Window(p.now(), opts)
	if err != nil {
		return Result{}, err
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	approach, err := p.sampler.MinimumApproach(ctx, a, b, w)
	if err != nil {
		return Result{}, fmt.Errorf("sampling %s vs %s: %w", sat1, sat2, err)
	}
	elapsed := time.Since(start)

	res := buildResult(sat1, sat2, w, approach)
	metrics.ObservePrediction(string(res.RiskCategory), elapsed)

	attrs := []any{
		"sat1", sat1,
		"sat2", sat2,
		"category", res.RiskCategory,
		"samples", approach.Samples,
		"valid_samples", approach.ValidSamples,
		"duration_ms", elapsed.Milliseconds(),
	}
	if res.Determined() {
		attrs = append(attrs, "min_distance_km", *res.MinDistanceKm, "closest_approach", *res.ClosestApproachTime)
	}
	p.logger.Info("prediction", attrs...)

	return res, nil
}

func buildResult(sat1, sat2 string, w Window, ap Approach) Result {
	res := Result{
		Sat1: sat1,
		Sat2: sat2,
		Sampling: Sampling{
			WindowStart:  w.Start,
			WindowHours:  w.Length.Hours(),
			StepMinutes:  w.Step.Minutes(),
			Samples:      ap.Samples,
			ValidSamples: ap.ValidSamples,
		},
	}

	if !ap.Found {
		res.RiskCategory = Undetermined
		res.RiskMessage = Undetermined.Message()
		return res
	}

	dist := math.Round(ap.DistanceKm*100) / 100
	at := ap.At
	res.MinDistanceKm = &dist
	res.ClosestApproachTime = &at
	res.RiskCategory, res.RiskMessage = Classify(ap.DistanceKm)
	res.CollisionRisk = ap.DistanceKm < CriticalBelowKm
	res.Positions = &Positions{
		Sat1: geoPoint(ap.PositionA, at),
		Sat2: geoPoint(ap.PositionB, at),
	}
	return res
}

func geoPoint(v propagation.Vector, t time.Time) GeoPoint {
	g := transform.SubSatellitePoint(transform.PositionTEME{X: v.X, Y: v.Y, Z: v.Z}, t)
	return GeoPoint{Lat: g.LatDeg, Lon: g.LonDeg, AltKm: g.AltKm}
}
