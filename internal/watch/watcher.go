// Package watch triggers refresh cycles when unit sources change on disk.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"graft/internal/config"
	"graft/internal/logging"
	"graft/internal/refresh"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
)

// Refresher runs one refresh cycle. A nil batch means every stale unit.
type Refresher interface {
	Refresh(ctx context.Context, batch refresh.Batch, opts ...refresh.Option) (*refresh.Report, error)
}

// Options tunes a Watcher.
type Options struct {
	Debounce     time.Duration
	PollInterval time.Duration
	// Extensions that trigger a refresh. Empty matches every file.
	Extensions []string
	// Ignore lists directory names that are never watched.
	Ignore []string
	// RefreshOptions are passed to every refresh cycle.
	RefreshOptions []refresh.Option
	// OnReport receives the outcome of every triggered cycle.
	OnReport func(*refresh.Report, error)
}

// OptionsFrom derives watcher options from cfg.
func OptionsFrom(cfg *config.Config) Options {
	exts := cfg.Watch.Extensions
	if len(exts) == 0 && cfg.Script.Extension != "" {
		exts = []string{cfg.Script.Extension}
	}
	return Options{
		Debounce:       cfg.GetDebounce(),
		PollInterval:   cfg.GetPollInterval(),
		Extensions:     exts,
		Ignore:         cfg.Watch.IgnorePatterns,
		RefreshOptions: []refresh.Option{refresh.WithMutate(cfg.Refresh.Mutate)},
	}
}

// Stats tracks watcher activity.
type Stats struct {
	FilesCreated       int
	FilesModified      int
	FilesDeleted       int
	RefreshesTriggered int
	UnitsReloaded      int
	Errors             int
	LastEventTime      time.Time
	LastEventPath      string
	LastEventType      string
}

// Watcher watches a source tree and refreshes stale units once edits settle.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	refresher   Refresher
	dir         string
	opts        Options
	debounceMap map[string]time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	flight singleflight.Group
	stats  Stats
}

// New creates a watcher for dir. Nothing is watched until Start.
func New(dir string, r Refresher, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	return &Watcher{
		watcher:     fw,
		refresher:   r,
		dir:         dir,
		opts:        opts,
		debounceMap: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start watches dir and every subdirectory not ignored. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("watching %s (debounce %s)", w.dir, w.opts.Debounce)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatchError("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchError("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processDebouncedEvents(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logging.WatchError("failed to watch %s: %v", event.Name, err)
			}
			return
		}
	}
	if !w.matches(event.Name) {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}
	logging.WatchDebug("%s event for %s", eventType, event.Name)

	w.mu.Lock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	switch eventType {
	case "create":
		w.stats.FilesCreated++
	case "modify":
		w.stats.FilesModified++
	case "delete", "rename":
		w.stats.FilesDeleted++
	}
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processDebouncedEvents triggers one refresh once any path has been quiet
// for the debounce window.
func (w *Watcher) processDebouncedEvents(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	settled := 0
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.opts.Debounce {
			delete(w.debounceMap, path)
			settled++
		}
	}
	w.mu.Unlock()

	if settled > 0 {
		w.Trigger(ctx)
	}
}

// Trigger runs a refresh of every stale unit. Concurrent calls share one cycle.
func (w *Watcher) Trigger(ctx context.Context) (*refresh.Report, error) {
	v, err, _ := w.flight.Do("refresh", func() (interface{}, error) {
		w.mu.Lock()
		w.stats.RefreshesTriggered++
		w.mu.Unlock()

		report, err := w.refresher.Refresh(ctx, nil, w.opts.RefreshOptions...)

		w.mu.Lock()
		if report != nil {
			w.stats.UnitsReloaded += len(report.Processed)
		}
		if err != nil {
			w.stats.Errors++
		}
		w.mu.Unlock()

		if err != nil {
			logging.WatchError("refresh failed: %v", err)
		} else if report != nil && !report.Empty() {
			logging.Watch("reloaded %v", report.Processed)
		}
		if w.opts.OnReport != nil {
			w.opts.OnReport(report, err)
		}
		return report, err
	})
	report, _ := v.(*refresh.Report)
	return report, err
}

func (w *Watcher) matches(path string) bool {
	if len(w.opts.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range w.opts.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(name string) bool {
	for _, p := range w.opts.Ignore {
		if name == p {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && w.ignored(d.Name()) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// ResetStats resets the watcher statistics.
func (w *Watcher) ResetStats() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats = Stats{}
}

// IsWatching reports whether the watcher is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetWatchedDirs returns the directories being watched.
func (w *Watcher) GetWatchedDirs() []string {
	return w.watcher.WatchList()
}
