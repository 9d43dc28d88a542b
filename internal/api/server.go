// Package api serves the conjunction prediction HTTP API.
package api

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/star/conjunct/internal/auth"
	"github.com/star/conjunct/internal/catalog"
	"github.com/star/conjunct/internal/conjunction"
	"github.com/star/conjunct/internal/health"
	"github.com/star/conjunct/internal/metrics"
)

// Refresher rebuilds the catalog on demand.
type Refresher interface {
	Refresh(ctx context.Context) (*catalog.Catalog, error)
}

// Options wires the server's dependencies.
type Options struct {
	Addr        string
	Logger      *slog.Logger
	Auth        auth.Config
	CORSOrigins []string
	TrustProxy  bool

	Store     *catalog.Store
	Predictor *conjunction.Predictor
	Refresher Refresher

	// Static is served at / when set.
	Static fs.FS
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewHandler(opts),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       120 * time.Second,
		},
		logger: opts.Logger,
	}
}

// NewHandler builds the router: metrics -> logging -> recoverer -> CORS -> routes.
// Only POST /refresh is behind auth.
func NewHandler(opts Options) http.Handler {
	h := &handlers{
		store:     opts.Store,
		predictor: opts.Predictor,
		refresher: opts.Refresher,
	}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware(opts.Logger, opts.TrustProxy))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz(func() bool { return opts.Store.Current() != nil }))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/list", h.list)
	r.Get("/predict", h.predict)
	r.Get("/catalog", h.catalogInfo)
	r.Get("/satellites/{name}", h.satellite)
	r.With(auth.Middleware(opts.Auth)).Post("/refresh", h.refresh)

	if opts.Static != nil {
		r.Method(http.MethodGet, "/*", http.FileServerFS(opts.Static))
	}

	return r
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}
