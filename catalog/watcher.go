package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the definition file watcher.
type WatcherConfig struct {
	// Dirs are the directories containing definition files to watch.
	Dirs []string

	// DebounceDelay is how long to wait for more changes before
	// emitting a reload event. Defaults to 250ms.
	DebounceDelay time.Duration

	// Logger for watcher events.
	Logger *slog.Logger
}

// ReloadEvent signals that definition files changed and the catalog
// should be reloaded. Paths lists the files seen changing during the
// debounce window.
type ReloadEvent struct {
	Paths []string
}

// Watcher watches definition directories and emits debounced reload
// events. It does not reload the catalog itself; the caller wires its
// Events channel to a loader + Catalog.Replace, which keeps filesystem
// concerns out of the registry.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]bool

	events chan ReloadEvent
}

// NewWatcher creates a watcher for the configured directories.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 250 * time.Millisecond
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]bool),
		events:  make(chan ReloadEvent, 16),
	}, nil
}

// Events returns the channel of reload events.
func (w *Watcher) Events() <-chan ReloadEvent {
	return w.events
}

// Start begins watching. It returns once watches are registered; event
// processing runs until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.config.Dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			w.logger.Warn("Skipping watch on missing directory", "dir", dir)
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.logger.Debug("Watching definition directory", "dir", dir)
	}

	go w.processEvents(ctx)

	w.logger.Info("Definition watcher started",
		"dirs", len(w.config.Dirs),
		"debounce", w.config.DebounceDelay)
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !IsDefinitionFile(event.Name) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending[filepath.Clean(event.Name)] = true
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	w.logger.Debug("Definition files changed", "count", len(paths))

	select {
	case w.events <- ReloadEvent{Paths: paths}:
	default:
		w.logger.Warn("Reload event dropped, channel full")
	}
}
