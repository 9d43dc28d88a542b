package catalog

import (
	"log/slog"
	"time"

	"github.com/star/conjunct/internal/metrics"
	"github.com/star/conjunct/internal/propagation"
	"github.com/star/conjunct/internal/tle"
)

// ModelFunc turns a decoded entry into a propagator-ready model.
type ModelFunc func(tle.Entry) (propagation.Model, error)

// Loader builds catalogs from already-read TLE text. It performs no I/O.
type Loader struct {
	newModel ModelFunc
	logger   *slog.Logger
	now      func() time.Time
}

// NewLoader creates a Loader. A nil newModel selects propagation.NewModel (SGP4).
func NewLoader(newModel ModelFunc, logger *slog.Logger) *Loader {
	if newModel == nil {
		newModel = propagation.NewModel
	}
	return &Loader{
		newModel: newModel,
		logger:   logger,
		now:      time.Now,
	}
}

// Load merges sources, in order, into a new catalog. Entries that fail to
// decode or initialize are logged and skipped; a repeated name replaces the
// earlier record.
func (l *Loader) Load(sources ...tle.Source) *Catalog {
	c := &Catalog{
		records:  make(map[string]*Record),
		Sources:  make([]string, 0, len(sources)),
		LoadedAt: l.now(),
	}

	for _, src := range sources {
		c.Sources = append(c.Sources, src.Name)

		entries, skipped, err := tle.Parse(src, l.logger)
		if err != nil {
			l.logger.Error("skipping unreadable TLE source", "source", src.Name, "error", err)
			continue
		}
		c.ParseErrors += len(skipped)

		for _, entry := range entries {
			model, err := l.newModel(entry)
			if err != nil {
				l.logger.Warn("skipping TLE entry that failed model init",
					"source", src.Name,
					"index", entry.Index,
					"name", entry.Name,
					"error", err,
				)
				c.ParseErrors++
				continue
			}
			c.put(&Record{Name: entry.Name, Entry: entry, Model: model})
		}
	}
	c.EpochRange = epochRange(c.records)

	metrics.AddCatalogParseErrors(c.ParseErrors)

	l.logger.Info("catalog loaded",
		"sources", c.Sources,
		"satellites", c.Len(),
		"parse_errors", c.ParseErrors,
	)

	return c
}

// put inserts or replaces a record, keeping the original listing position
// of a replaced name.
func (c *Catalog) put(r *Record) {
	if _, exists := c.records[r.Name]; !exists {
		c.names = append(c.names, r.Name)
	}
	c.records[r.Name] = r
}

// epochRange spans the epochs of the records that survived loading.
func epochRange(records map[string]*Record) EpochRange {
	var er EpochRange
	for _, r := range records {
		epoch := r.Entry.Epoch
		if er.Min.IsZero() || epoch.Before(er.Min) {
			er.Min = epoch
		}
		if epoch.After(er.Max) {
			er.Max = epoch
		}
	}
	return er
}
