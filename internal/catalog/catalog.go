// Package catalog builds named satellite catalogs from TLE sources and holds
// the current catalog behind an atomic pointer so refreshes never expose a
// partially built catalog to readers.
package catalog

import (
	"time"

	"github.com/star/conjunct/internal/propagation"
	"github.com/star/conjunct/internal/tle"
)

// Record is one satellite ready for propagation. Immutable once built.
type Record struct {
	Name  string
	Entry tle.Entry
	Model propagation.Model
}

// EpochRange is the span of element epochs in a catalog.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Catalog maps satellite names to records. Names are unique; listing order is
// the position at which each name was first inserted. A Catalog is never
// modified after the Loader returns it. A nil *Catalog behaves as empty.
type Catalog struct {
	names   []string
	records map[string]*Record

	Sources     []string
	LoadedAt    time.Time
	ParseErrors int
	EpochRange  EpochRange
}

// Get returns the record for name.
func (c *Catalog) Get(name string) (*Record, bool) {
	if c == nil {
		return nil, false
	}
	r, ok := c.records[name]
	return r, ok
}

// Len returns the number of satellites.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Names returns satellite names in listing order. The slice is a copy.
func (c *Catalog) Names() []string {
	if c == nil {
		return []string{}
	}
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
