package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conjunct_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conjunct_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conjunct_predictions_total",
			Help: "Completed conjunction predictions by risk category.",
		},
		[]string{"category"},
	)

	predictionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conjunct_prediction_duration_seconds",
			Help:    "Time spent sampling a prediction window.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	propagationUnavailableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conjunct_propagation_unavailable_total",
			Help: "Position samples the propagator could not produce.",
		},
	)

	catalogSatellites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "conjunct_catalog_satellites",
			Help: "Number of satellites in the current catalog.",
		},
	)

	catalogParseErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conjunct_catalog_parse_errors_total",
			Help: "TLE entries skipped while loading catalogs.",
		},
	)

	catalogRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conjunct_catalog_refresh_total",
			Help: "Catalog reloads by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	tleFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conjunct_tle_fetch_total",
			Help: "TLE source downloads by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	catalogAgeOnce sync.Once
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		predictionsTotal,
		predictionDurationSeconds,
		propagationUnavailableTotal,
		catalogSatellites,
		catalogParseErrorsTotal,
		catalogRefreshTotal,
		tleFetchTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePrediction records one finished prediction.
func ObservePrediction(category string, d time.Duration) {
	predictionsTotal.WithLabelValues(category).Inc()
	predictionDurationSeconds.Observe(d.Seconds())
}

// IncPropagationUnavailable counts one unavailable position sample.
func IncPropagationUnavailable() {
	propagationUnavailableTotal.Inc()
}

// SetCatalogSatellites sets the current catalog size.
func SetCatalogSatellites(n int) {
	catalogSatellites.Set(float64(n))
}

// AddCatalogParseErrors adds n skipped entries.
func AddCatalogParseErrors(n int) {
	if n > 0 {
		catalogParseErrorsTotal.Add(float64(n))
	}
}

// IncCatalogRefresh counts a reload. trigger is "startup", "api", "watch"
// or "cli"; outcome is "success" or "error".
func IncCatalogRefresh(trigger, outcome string) {
	catalogRefreshTotal.WithLabelValues(trigger, outcome).Inc()
}

// IncTLEFetch counts one download attempt for a named source.
func IncTLEFetch(source, outcome string) {
	tleFetchTotal.WithLabelValues(source, outcome).Inc()
}

// RegisterCatalogAge exposes the age of the loaded catalog. Only the first
// call registers; later calls are ignored.
func RegisterCatalogAge(age func() float64) {
	catalogAgeOnce.Do(func() {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "conjunct_catalog_age_seconds",
				Help: "Seconds since the current catalog was loaded, -1 before the first load.",
			},
			age,
		))
	})
}

// knownRoutes are exact paths reported under their own label.
var knownRoutes = map[string]bool{
	"/":        true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
	"/list":    true,
	"/predict": true,
	"/refresh": true,
	"/catalog": true,
}

// normalizeRoute maps a request path to a bounded label set so that
// satellite names and scanner noise cannot explode metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/satellites/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/satellites/{name}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
