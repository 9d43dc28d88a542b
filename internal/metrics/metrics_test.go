package metrics

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/list", "/list"},
		{"/predict", "/predict"},
		{"/refresh", "/refresh"},
		{"/catalog", "/catalog"},
		{"/", "/"},

		// Satellite lookups collapse to one label.
		{"/satellites/ISS%20(ZARYA)", "/satellites/{name}"},
		{"/satellites/STARLINK-1007", "/satellites/{name}"},
		{"/satellites/x", "/satellites/{name}"},

		// Unknown/bot paths collapse to "other".
		{"/app.js", "other"},
		{"/satellites/", "other"},
		{"/satellites/a/b", "other"},
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unique satellite names produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute("/satellites/SAT-"+strconv.Itoa(i))] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/satellites/{name}", "GET", "404"))

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	for _, name := range []string{"A", "B", "C"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/satellites/"+name, nil))
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/satellites/{name}", "GET", "404"))
	if after-before != 3 {
		t.Errorf("request counter delta = %v, want 3", after-before)
	}
}

func TestObservePrediction(t *testing.T) {
	before := testutil.ToFloat64(predictionsTotal.WithLabelValues("ELEVATED"))
	ObservePrediction("ELEVATED", 20*time.Millisecond)
	if got := testutil.ToFloat64(predictionsTotal.WithLabelValues("ELEVATED")) - before; got != 1 {
		t.Errorf("predictions delta = %v, want 1", got)
	}
}

func TestCatalogGauges(t *testing.T) {
	SetCatalogSatellites(42)
	if got := testutil.ToFloat64(catalogSatellites); got != 42 {
		t.Errorf("catalog satellites = %v, want 42", got)
	}

	before := testutil.ToFloat64(catalogParseErrorsTotal)
	AddCatalogParseErrors(0)
	AddCatalogParseErrors(3)
	if got := testutil.ToFloat64(catalogParseErrorsTotal) - before; got != 3 {
		t.Errorf("parse errors delta = %v, want 3", got)
	}
}
