package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/star/conjunct/internal/tle"
)

// DefaultDebounce coalesces the burst of events a single file write produces.
const DefaultDebounce = 500 * time.Millisecond

// Watch calls reload whenever a catalog file in dir is written, created,
// removed or renamed. Events are debounced so a burst triggers one reload.
// It blocks until ctx is cancelled.
func Watch(ctx context.Context, dir string, debounce time.Duration, reload func(), logger *slog.Logger) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating TLE directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("watching TLE directory", "dir", dir)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&relevant == 0 || !tle.IsSourceFile(ev.Name) {
				continue
			}
			logger.Debug("TLE file changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			reload()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("TLE watcher error", "error", err)
		}
	}
}
