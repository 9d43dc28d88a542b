package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/star/conjunct/internal/catalog"
	"github.com/star/conjunct/internal/conjunction"
	"github.com/star/conjunct/internal/logging"
	"github.com/star/conjunct/internal/metrics"
)

// msgNotFound is the client-facing error for unknown satellite names.
const msgNotFound = "Satellite not found in local TLEs"

type handlers struct {
	store     *catalog.Store
	predictor *conjunction.Predictor
	refresher Refresher
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type listResponse struct {
	Count      int      `json:"count"`
	Satellites []string `json:"satellites"`
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	names := h.store.Current().Names()
	writeJSON(w, http.StatusOK, listResponse{Count: len(names), Satellites: names})
}

// parseOptions reads the optional hours and step query parameters.
func parseOptions(q url.Values) (conjunction.Options, error) {
	var opts conjunction.Options
	for _, p := range []struct {
		key string
		dst *float64
	}{
		{"hours", &opts.WindowHours},
		{"step", &opts.StepMinutes},
	} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !(v > 0) {
			return opts, fmt.Errorf("%s must be a positive number, got %q", p.key, raw)
		}
		*p.dst = v
	}
	return opts, nil
}

func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	q := r.URL.Query()
	sat1, sat2 := q.Get("sat1"), q.Get("sat2")

	opts, err := parseOptions(q)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       err.Error(),
			"max_samples": h.predictor.MaxSamples(),
		})
		return
	}

	res, err := h.predictor.Predict(r.Context(), sat1, sat2, opts)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, conjunction.ErrUnknownSatellite):
		logger.Warn("prediction failed", "sat1", sat1, "sat2", sat2, "error", err)
		writeError(w, http.StatusBadRequest, msgNotFound)
	case errors.Is(err, conjunction.ErrInvalidWindow), errors.Is(err, conjunction.ErrSampleBudget):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       err.Error(),
			"max_samples": h.predictor.MaxSamples(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("prediction timed out", "sat1", sat1, "sat2", sat2)
		writeError(w, http.StatusServiceUnavailable, "prediction timed out")
	case errors.Is(err, context.Canceled):
		logger.Debug("prediction cancelled by client", "sat1", sat1, "sat2", sat2)
	default:
		logger.Error("prediction error", "sat1", sat1, "sat2", sat2, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type refreshResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	c, err := h.refresher.Refresh(r.Context())
	if err != nil {
		metrics.IncCatalogRefresh("api", "error")
		logger.Error("catalog refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.IncCatalogRefresh("api", "success")
	logger.Info("TLEs refreshed", "satellites", c.Len())
	writeJSON(w, http.StatusOK, refreshResponse{Message: "TLEs refreshed successfully!", Count: c.Len()})
}

type catalogResponse struct {
	Satellites  int        `json:"satellites"`
	Sources     []string   `json:"sources"`
	LoadedAt    *time.Time `json:"loaded_at"`
	ParseErrors int        `json:"parse_errors"`
	EpochMin    *time.Time `json:"epoch_min"`
	EpochMax    *time.Time `json:"epoch_max"`
}

func (h *handlers) catalogInfo(w http.ResponseWriter, r *http.Request) {
	c := h.store.Current()
	if c == nil {
		writeError(w, http.StatusServiceUnavailable, "no catalog loaded")
		return
	}

	resp := catalogResponse{
		Satellites:  c.Len(),
		Sources:     c.Sources,
		LoadedAt:    &c.LoadedAt,
		ParseErrors: c.ParseErrors,
	}
	if c.Len() > 0 {
		resp.EpochMin = &c.EpochRange.Min
		resp.EpochMax = &c.EpochRange.Max
	}
	writeJSON(w, http.StatusOK, resp)
}

type satelliteResponse struct {
	Name             string    `json:"name"`
	NORADID          int       `json:"norad_id"`
	Classification   string    `json:"classification"`
	IntlDesignator   string    `json:"intl_designator"`
	Epoch            time.Time `json:"epoch"`
	Line1            string    `json:"line1"`
	Line2            string    `json:"line2"`
	InclinationDeg   float64   `json:"inclination_deg"`
	RAANDeg          float64   `json:"raan_deg"`
	Eccentricity     float64   `json:"eccentricity"`
	ArgPerigeeDeg    float64   `json:"arg_perigee_deg"`
	MeanAnomalyDeg   float64   `json:"mean_anomaly_deg"`
	MeanMotion       float64   `json:"mean_motion_rev_per_day"`
	PeriodMinutes    float64   `json:"period_minutes"`
	BStar            float64   `json:"bstar"`
	ElementSetNumber int       `json:"element_set_number"`
	RevolutionNumber int       `json:"revolution_number"`
}

func (h *handlers) satellite(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}

	rec, ok := h.store.Current().Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	e := rec.Entry
	el := e.Elements
	writeJSON(w, http.StatusOK, satelliteResponse{
		Name:             rec.Name,
		NORADID:          e.NORADID,
		Classification:   string(el.Classification),
		IntlDesignator:   el.IntlDesignator,
		Epoch:            e.Epoch,
		Line1:            e.Line1,
		Line2:            e.Line2,
		InclinationDeg:   el.Inclination,
		RAANDeg:          el.RAAN,
		Eccentricity:     el.Eccentricity,
		ArgPerigeeDeg:    el.ArgPerigee,
		MeanAnomalyDeg:   el.MeanAnomaly,
		MeanMotion:       el.MeanMotion,
		PeriodMinutes:    el.PeriodMinutes(),
		BStar:            el.BStar,
		ElementSetNumber: el.ElementSetNumber,
		RevolutionNumber: el.RevolutionNumber,
	})
}
