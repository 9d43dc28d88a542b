package catalog

import (
	"sync/atomic"
	"time"

	"github.com/star/conjunct/internal/metrics"
)

// Store provides lock-free access to the current catalog.
type Store struct {
	catalog atomic.Pointer[Catalog]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the current catalog, or nil if none has been loaded.
func (s *Store) Current() *Catalog {
	return s.catalog.Load()
}

// Swap atomically installs c and returns the catalog it replaced.
func (s *Store) Swap(c *Catalog) *Catalog {
	old := s.catalog.Swap(c)
	metrics.SetCatalogSatellites(c.Len())
	return old
}

// AgeSeconds returns the age of the current catalog in seconds.
// Returns -1 if no catalog is loaded.
func (s *Store) AgeSeconds() float64 {
	c := s.catalog.Load()
	if c == nil {
		return -1
	}
	return time.Since(c.LoadedAt).Seconds()
}
