package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/star/conjunct/internal/metrics"
	"github.com/star/conjunct/internal/tle"
)

// Source names one catalog file and, optionally, where to download it from.
type Source struct {
	Name string
	URL  string
}

// Fetcher downloads raw TLE text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RefresherConfig wires a Refresher.
type RefresherConfig struct {
	Store   *Store
	Loader  *Loader
	Dir     *tle.SourceDir
	Sources []Source
	Logger  *slog.Logger

	// Fetcher is used by Refresh. Nil disables downloads; Refresh then only
	// reloads the files already on disk.
	Fetcher Fetcher
}

// Refresher rebuilds the catalog from the source directory and swaps it
// into the store. Reload and Refresh are serialized.
type Refresher struct {
	store   *Store
	loader  *Loader
	dir     *tle.SourceDir
	sources []Source
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time

	mu sync.Mutex
}

// NewRefresher creates a Refresher.
func NewRefresher(cfg RefresherConfig) *Refresher {
	return &Refresher{
		store:   cfg.Store,
		loader:  cfg.Loader,
		dir:     cfg.Dir,
		sources: cfg.Sources,
		fetcher: cfg.Fetcher,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Reload reads every configured source file and installs a new catalog.
// A missing file loads as an empty source. Any other read error aborts the
// reload and leaves the current catalog in place.
func (r *Refresher) Reload() (*Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reload()
}

// Refresh downloads every source that has a URL, writes the successful
// downloads to the source directory, then reloads. A failed download keeps
// the previous file for that source.
func (r *Refresher) Refresh(ctx context.Context) (*Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fetcher != nil {
		for _, src := range r.sources {
			if src.URL == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r.fetchOne(ctx, src)
		}
	}

	return r.reload()
}

func (r *Refresher) fetchOne(ctx context.Context, src Source) {
	data, err := r.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		metrics.IncTLEFetch(src.Name, "error")
		r.logger.Warn("TLE download failed, keeping previous file",
			"source", src.Name,
			"url", src.URL,
			"error", err,
		)
		return
	}
	if err := r.dir.Write(src.Name, data, r.now()); err != nil {
		metrics.IncTLEFetch(src.Name, "error")
		r.logger.Error("writing TLE source failed", "source", src.Name, "error", err)
		return
	}
	metrics.IncTLEFetch(src.Name, "success")
	r.logger.Info("TLE source updated", "source", src.Name, "bytes", len(data))
}

func (r *Refresher) reload() (*Catalog, error) {
	sources := make([]tle.Source, 0, len(r.sources))
	for _, s := range r.sources {
		src, err := r.dir.Read(s.Name)
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("TLE source file missing, loading as empty", "source", s.Name, "path", r.dir.Path(s.Name))
			sources = append(sources, tle.Source{Name: s.Name})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reloading catalog: %w", err)
		}
		sources = append(sources, src)
	}

	c := r.loader.Load(sources...)
	r.store.Swap(c)
	return c, nil
}
