// Package watcher keeps source directories sorted by handling files as they
// appear.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"extsort/internal/config"
	"extsort/internal/logging"
	"extsort/internal/scanner"
)

// ErrSkip may be returned by a Handler to count a file as skipped rather
// than failed.
var ErrSkip = errors.New("skip file")

// Config contains watcher settings.
type Config struct {
	Debounce        time.Duration // Quiet period after the last event for a file
	StableThreshold time.Duration // How long the size must stay unchanged
	IgnorePatterns  []string      // Glob patterns for temporary files; nil selects the defaults
}

// ConfigFromSettings converts the [watch] configuration section.
func ConfigFromSettings(w config.Watch) Config {
	return Config{
		Debounce:        time.Duration(w.DebounceMs) * time.Millisecond,
		StableThreshold: time.Duration(w.StableThresholdMs) * time.Millisecond,
		IgnorePatterns:  w.IgnorePatterns,
	}
}

// Summary contains stats from a watch session.
type Summary struct {
	Sorted   int
	Ignored  int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// Handler sorts one settled file. Calls are serialized.
type Handler func(file scanner.FileEntry) error

// Watcher monitors source directories for new files.
type Watcher struct {
	cfg       Config
	handler   Handler
	logger    *slog.Logger
	filter    *FileFilter
	debouncer *Debouncer
	stability *StabilityChecker

	fsWatcher *fsnotify.Watcher
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	inflight  sync.WaitGroup
	handleMu  sync.Mutex
	startTime time.Time

	mu      sync.Mutex
	stopped bool
	summary Summary
}

// New creates a Watcher. The handler is called for each settled file.
func New(cfg Config, handler Handler, logger *slog.Logger) *Watcher {
	w := &Watcher{
		cfg:       cfg,
		handler:   handler,
		logger:    logging.OrNop(logger),
		filter:    NewFileFilter(cfg.IgnorePatterns),
		stability: NewStabilityChecker(cfg.StableThreshold),
	}
	w.debouncer = NewDebouncer(cfg.Debounce, w.onSettled)
	return w
}

// Start begins watching dirs. Only direct children are observed.
func (w *Watcher) Start(ctx context.Context, dirs []string) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Paths stay as given so event names share the form of the caller's root.
	for _, dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return err
		}
		w.logger.Debug("watching directory", slog.String("dir", dir))
	}
	w.logger.Debug("watch settings",
		slog.Duration("debounce", w.cfg.Debounce),
		slog.Duration("stable_threshold", w.stability.Threshold()),
		slog.Any("ignore_patterns", w.filter.Patterns()))

	w.fsWatcher = fsWatcher
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.startTime = time.Now()

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Run watches dirs until ctx is cancelled and returns the session summary.
func (w *Watcher) Run(ctx context.Context, dirs []string) (Summary, error) {
	if err := w.Start(ctx, dirs); err != nil {
		return Summary{}, err
	}
	<-ctx.Done()
	return w.Stop(), nil
}

// Stop shuts the watcher down, waits for an in-flight file to finish and
// returns the session summary. Pending debounced files are dropped.
func (w *Watcher) Stop() Summary {
	w.mu.Lock()
	if w.stopped {
		defer w.mu.Unlock()
		return w.summary
	}
	w.stopped = true
	w.mu.Unlock()

	if n := w.debouncer.PendingCount(); n > 0 {
		w.logger.Debug("dropping unsettled files", slog.Int("count", n))
	}
	w.debouncer.CancelAll()
	if w.cancel != nil {
		w.cancel()
	}
	if w.done != nil {
		close(w.done)
	}
	w.wg.Wait()
	w.inflight.Wait()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.startTime.IsZero() {
		w.summary.Duration = time.Since(w.startTime)
	}
	return w.summary
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Has(fsnotify.Create):
				w.handleCreate(event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				// Gone before it settled.
				w.debouncer.Cancel(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleCreate(path string) {
	if w.filter.ShouldIgnore(path) {
		w.logger.Debug("ignoring temporary file", slog.String("path", path))
		w.count(func(s *Summary) { s.Ignored++ })
		return
	}
	if w.debouncer.IsPending(path) {
		w.logger.Debug("restarting quiet period", slog.String("path", path))
	}
	w.debouncer.Add(path)
}

// onSettled runs once a path has been quiet for the debounce delay.
func (w *Watcher) onSettled(path string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	info, err := w.stability.WaitForStable(w.ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, ErrFileNotFound) {
			return
		}
		w.logger.Warn("file did not settle", slog.String("path", path), slog.Any("error", err))
		w.count(func(s *Summary) { s.Failed++ })
		return
	}
	if !info.Mode().IsRegular() {
		return
	}

	entry := scanner.FileEntry{Name: filepath.Base(path), FullPath: path, Size: info.Size()}

	w.handleMu.Lock()
	defer w.handleMu.Unlock()

	if w.handler == nil {
		w.count(func(s *Summary) { s.Sorted++ })
		return
	}

	switch err := w.handler(entry); {
	case err == nil:
		w.count(func(s *Summary) { s.Sorted++ })
	case errors.Is(err, ErrSkip):
		w.logger.Debug("skipping file", slog.String("path", path))
		w.count(func(s *Summary) { s.Skipped++ })
	default:
		w.logger.Error("failed to sort file", slog.String("path", path), slog.Any("error", err))
		w.count(func(s *Summary) { s.Failed++ })
	}
}

func (w *Watcher) count(update func(*Summary)) {
	w.mu.Lock()
	update(&w.summary)
	w.mu.Unlock()
}
