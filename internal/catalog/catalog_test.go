package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/star/conjunct/internal/propagation"
	"github.com/star/conjunct/internal/tle"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"

	issLine1Later = "1 25544U 98067A   24101.50000000  .00016717  00000-0  10270-3 0  9006"

	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05"
)

// stubModel is a constant-position model tagged with the epoch it came from.
type stubModel struct{ epoch time.Time }

func (m stubModel) PositionAt(time.Time) (propagation.Vector, bool) {
	return propagation.Vector{X: 7000}, true
}

func stubModels(e tle.Entry) (propagation.Model, error) {
	return stubModel{epoch: e.Epoch}, nil
}

func text(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestLoadSkipsMalformed(t *testing.T) {
	src := tle.Source{Name: "mixed", Data: text(
		"ISS (ZARYA)", issLine1, issLine2,
		"BROKEN", "1 garbage", "2 garbage",
		"STARLINK-1007", starlinkLine1, starlinkLine2,
	)}

	c := NewLoader(stubModels, testLogger).Load(src)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1", c.ParseErrors)
	}
	if _, ok := c.Get("BROKEN"); ok {
		t.Error("malformed entry should not be in the catalog")
	}
}

func TestLoadEntryCount(t *testing.T) {
	// 9 lines of valid groups -> 3 entries; a 2-line tail is discarded.
	src := tle.Source{Name: "three", Data: text(
		"A", issLine1, issLine2,
		"B", starlinkLine1, starlinkLine2,
		"C", issLine1, issLine2,
		"D", issLine1,
	)}

	c := NewLoader(stubModels, testLogger).Load(src)
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if c.ParseErrors != 0 {
		t.Errorf("ParseErrors = %d, want 0 (tail is not an error)", c.ParseErrors)
	}
}

func TestLoadLastWriteWins(t *testing.T) {
	first := tle.Source{Name: "first", Data: text(
		"ISS (ZARYA)", issLine1, issLine2,
		"STARLINK-1007", starlinkLine1, starlinkLine2,
	)}
	second := tle.Source{Name: "second", Data: text(
		"ISS (ZARYA)", issLine1Later, issLine2,
	)}

	c := NewLoader(stubModels, testLogger).Load(first, second)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	r, ok := c.Get("ISS (ZARYA)")
	if !ok {
		t.Fatal("ISS missing")
	}
	want := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	if !r.Entry.Epoch.Equal(want) {
		t.Errorf("epoch = %v, want later element set %v", r.Entry.Epoch, want)
	}
	if m := r.Model.(stubModel); !m.epoch.Equal(want) {
		t.Errorf("model built from epoch %v, want %v", m.epoch, want)
	}

	// The replaced name keeps its first listing position.
	names := c.Names()
	if names[0] != "ISS (ZARYA)" || names[1] != "STARLINK-1007" {
		t.Errorf("Names() = %v", names)
	}
	if len(c.Sources) != 2 || c.Sources[1] != "second" {
		t.Errorf("Sources = %v", c.Sources)
	}
}

func TestLoadDuplicateWithinSource(t *testing.T) {
	src := tle.Source{Name: "dup", Data: text(
		"ISS (ZARYA)", issLine1, issLine2,
		"ISS (ZARYA)", issLine1Later, issLine2,
	)}

	c := NewLoader(stubModels, testLogger).Load(src)
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	r, _ := c.Get("ISS (ZARYA)")
	if r.Entry.Epoch.Day() != 10 {
		t.Errorf("epoch = %v, want the second entry", r.Entry.Epoch)
	}
}

func TestLoadModelFailureIsSkipped(t *testing.T) {
	failing := func(e tle.Entry) (propagation.Model, error) {
		if e.Name == "STARLINK-1007" {
			return nil, errors.New("decayed")
		}
		return stubModel{}, nil
	}
	src := tle.Source{Name: "s", Data: text(
		"ISS (ZARYA)", issLine1, issLine2,
		"STARLINK-1007", starlinkLine1, starlinkLine2,
	)}

	c := NewLoader(failing, testLogger).Load(src)
	if c.Len() != 1 || c.ParseErrors != 1 {
		t.Errorf("Len() = %d, ParseErrors = %d; want 1, 1", c.Len(), c.ParseErrors)
	}
}

func TestLoadModelFailureReportsGroupIndex(t *testing.T) {
	failing := func(e tle.Entry) (propagation.Model, error) {
		if e.Name == "STARLINK-1007" {
			return nil, errors.New("decayed")
		}
		return stubModel{}, nil
	}
	src := tle.Source{Name: "s", Data: text(
		"ISS (ZARYA)", issLine1, issLine2,
		"BROKEN", "1 garbage", "2 garbage",
		"STARLINK-1007", starlinkLine1, starlinkLine2,
	)}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	NewLoader(failing, logger).Load(src)

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec struct {
			Msg   string `json:"msg"`
			Index int    `json:"index"`
		}
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("bad log line %s: %v", line, err)
		}
		if rec.Msg == "skipping TLE entry that failed model init" {
			found = true
			if rec.Index != 2 {
				t.Errorf("index = %d, want 2 (group position in the source)", rec.Index)
			}
		}
	}
	if !found {
		t.Fatalf("no model-init warning logged:\n%s", buf.String())
	}
}

// TestLoadMalformedEpochWithSGP4 feeds an epoch the SGP4 reader cannot parse
// through the real model constructor; the entry must be skipped, not abort the load.
func TestLoadMalformedEpochWithSGP4(t *testing.T) {
	badEpoch := issLine1[:18] + "24 99.50000000" + issLine1[32:]
	src := tle.Source{Name: "s", Data: text(
		"BAD EPOCH", badEpoch, issLine2,
		"STARLINK-1007", starlinkLine1, starlinkLine2,
	)}

	c := NewLoader(nil, testLogger).Load(src)
	if c.Len() != 1 || c.ParseErrors != 1 {
		t.Fatalf("Len() = %d, ParseErrors = %d; want 1, 1", c.Len(), c.ParseErrors)
	}
	if _, ok := c.Get("STARLINK-1007"); !ok {
		t.Error("valid entry after the malformed one is missing")
	}
}

func TestLoadEpochRangeIgnoresReplaced(t *testing.T) {
	src := tle.Source{Name: "s", Data: text(
		"A", issLine1Later, issLine2,
		"A", issLine1, issLine2,
		"B", starlinkLine1, starlinkLine2,
	)}

	c := NewLoader(stubModels, testLogger).Load(src)
	want := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if !c.EpochRange.Min.Equal(want) || !c.EpochRange.Max.Equal(want) {
		t.Errorf("EpochRange = %+v, want both %v", c.EpochRange, want)
	}
}

func TestLoadEpochRange(t *testing.T) {
	src := tle.Source{Name: "s", Data: text(
		"A", issLine1Later, issLine2,
		"B", starlinkLine1, starlinkLine2,
	)}

	c := NewLoader(stubModels, testLogger).Load(src)
	if c.EpochRange.Min.Day() != 9 || c.EpochRange.Max.Day() != 10 {
		t.Errorf("EpochRange = %+v", c.EpochRange)
	}
}

func TestLoadNoSources(t *testing.T) {
	c := NewLoader(stubModels, testLogger).Load()
	if c.Len() != 0 || len(c.Names()) != 0 {
		t.Errorf("empty load produced %d entries", c.Len())
	}
}

func TestLoadDefaultModel(t *testing.T) {
	src := tle.Source{Name: "s", Data: text("ISS (ZARYA)", issLine1, issLine2)}

	c := NewLoader(nil, testLogger).Load(src)
	r, ok := c.Get("ISS (ZARYA)")
	if !ok {
		t.Fatal("ISS missing")
	}
	if _, ok := r.Model.(*propagation.SGP4); !ok {
		t.Errorf("default model is %T, want *propagation.SGP4", r.Model)
	}
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	if c.Len() != 0 {
		t.Error("nil catalog Len() != 0")
	}
	if _, ok := c.Get("x"); ok {
		t.Error("nil catalog Get() found a record")
	}
	if names := c.Names(); names == nil || len(names) != 0 {
		t.Errorf("nil catalog Names() = %v, want empty non-nil", names)
	}
}

func TestNamesIsCopy(t *testing.T) {
	c := NewLoader(stubModels, testLogger).Load(tle.Source{Name: "s", Data: text("A", issLine1, issLine2)})
	names := c.Names()
	names[0] = "mutated"
	if _, ok := c.Get("A"); !ok || c.Names()[0] != "A" {
		t.Error("mutating Names() result changed the catalog")
	}
}

func TestStoreSwap(t *testing.T) {
	s := NewStore()
	if s.Current() != nil {
		t.Fatal("new store should be empty")
	}
	if age := s.AgeSeconds(); age != -1 {
		t.Errorf("AgeSeconds() = %v before load, want -1", age)
	}

	loader := NewLoader(stubModels, testLogger)
	first := loader.Load(tle.Source{Name: "s", Data: text("A", issLine1, issLine2)})
	if old := s.Swap(first); old != nil {
		t.Error("first swap returned a previous catalog")
	}
	second := loader.Load()
	if old := s.Swap(second); old != first {
		t.Error("second swap did not return the first catalog")
	}
	if s.Current() != second {
		t.Error("Current() is not the latest catalog")
	}
	if age := s.AgeSeconds(); age < 0 {
		t.Errorf("AgeSeconds() = %v after load", age)
	}
}

// TestStoreConcurrentReaders checks that readers only ever observe complete
// catalogs while another goroutine keeps swapping. Run with -race.
func TestStoreConcurrentReaders(t *testing.T) {
	s := NewStore()
	loader := NewLoader(stubModels, testLogger)
	full := loader.Load(tle.Source{Name: "s", Data: text(
		"A", issLine1, issLine2,
		"B", starlinkLine1, starlinkLine2,
	)})
	s.Swap(full)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Swap(loader.Load(tle.Source{Name: "s", Data: text(
				"A", issLine1, issLine2,
				"B", starlinkLine1, starlinkLine2,
			)}))
		}
		close(stop)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				c := s.Current()
				if c.Len() != 2 {
					t.Errorf("observed partial catalog with %d entries", c.Len())
					return
				}
				for _, n := range c.Names() {
					if _, ok := c.Get(n); !ok {
						t.Errorf("name %q listed but not found", n)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
