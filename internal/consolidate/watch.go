package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-runs a consolidation whenever sources in a directory change.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	// Exclude lists paths whose changes never trigger a rebuild, typically
	// the output file when it lives in Dir.
	Exclude []string
	// Filter reports whether a changed path should trigger a rebuild.
	Filter  func(path string) bool
	Rebuild func(ctx context.Context) error
	Logger  *slog.Logger

	kick     chan struct{}
	excluded map[string]bool
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, rebuild func(ctx context.Context) error, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		Dir:      dir,
		Debounce: DefaultDebounce,
		Rebuild:  rebuild,
		Logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Trigger requests a rebuild without a filesystem event, e.g. after the
// extraction grammar changed. Safe to call from any goroutine.
func (w *Watcher) Trigger() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run watches until ctx is cancelled. Rebuild errors are logged, not fatal.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}
	w.excluded = pathSet(w.Exclude)
	w.Logger.Info("watching for changes", "dir", w.Dir)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.Logger.Debug("source changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("watch error", "error", err)

		case <-w.kick:
			timer.Reset(debounce)

		case <-timer.C:
			if err := w.Rebuild(ctx); err != nil {
				w.Logger.Warn("rebuild failed", "error", err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if ignored(event.Name, w.excluded) {
		return false
	}
	if w.Filter != nil {
		return w.Filter(event.Name)
	}
	_, ok := FormatFor(filepath.Base(event.Name))
	return ok
}
