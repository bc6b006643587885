package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a watch fires.
const DefaultDebounce = time.Second

// DirWatcher reports batches of changed paths under a working directory.
// The directory and its immediate subdirectories (unpacked plugins) are watched.
type DirWatcher struct {
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	changed map[string]bool
	timer   *time.Timer
}

// WatcherOption configures a DirWatcher.
type WatcherOption func(*DirWatcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *DirWatcher) { w.debounce = d }
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *DirWatcher) { w.logger = l }
}

// NewDirWatcher creates a watcher.
func NewDirWatcher(opts ...WatcherOption) *DirWatcher {
	w := &DirWatcher{debounce: DefaultDebounce, logger: slog.Default(), changed: map[string]bool{}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is done, calling onChange with the sorted changed
// paths once events stop arriving for the debounce period. Calls to onChange
// never overlap, and none is running or starts after Watch returns.
func (w *DirWatcher) Watch(ctx context.Context, dir string, onChange func(paths []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() && !isHidden(e.Name()) {
			if err := watcher.Add(filepath.Join(dir, e.Name())); err != nil {
				w.logger.Warn("cannot watch subdirectory", "dir", e.Name(), "error", err)
			}
		}
	}
	w.logger.Debug("watching working directory", "dir", dir)

	var (
		fire    sync.Mutex
		stopped bool
	)
	flush := func() {
		fire.Lock()
		defer fire.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		if paths := w.drain(); len(paths) > 0 {
			onChange(paths)
		}
	}
	// No onChange runs once Watch returns: wait out an in-flight flush and
	// turn later timer firings into no-ops.
	defer func() {
		w.stopTimer()
		fire.Lock()
		stopped = true
		fire.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handle(watcher, dir, event, flush)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *DirWatcher) handle(watcher *fsnotify.Watcher, root string, event fsnotify.Event, flush func()) {
	if event.Op == fsnotify.Chmod || isHidden(filepath.Base(event.Name)) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == root {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = watcher.Add(event.Name)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.changed[event.Name] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, flush)
}

func (w *DirWatcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.changed))
	for p := range w.changed {
		paths = append(paths, p)
	}
	clear(w.changed)
	slices.Sort(paths)
	return paths
}

func (w *DirWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
