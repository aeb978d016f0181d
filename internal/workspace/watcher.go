package workspace

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ArtifactEvent signals that an artifact landed in a watched shared
// area.
type ArtifactEvent struct {
	ObjectiveID string
	Name        string
}

// Watcher surfaces artifact arrivals across watched shared areas. It
// fires on the metadata sidecar, which is written after the artifact
// body, so the artifact is always complete when the event arrives.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan ArtifactEvent
	logger *slog.Logger
	done   chan struct{}
}

// NewWatcher starts the event pump. Callers must Close it.
func NewWatcher(logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		events: make(chan ArtifactEvent, 32),
		logger: logger,
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Watch adds an objective's shared area to the watch set. The area must
// already exist.
func (w *Watcher) Watch(area string) error {
	if err := w.fsw.Add(area); err != nil {
		return fmt.Errorf("watch %s: %w", area, err)
	}
	w.logger.Debug("watching shared area", "path", area)
	return nil
}

// Events delivers artifact arrivals. The channel closes when the
// watcher is closed.
func (w *Watcher) Events() <-chan ArtifactEvent {
	return w.events
}

func (w *Watcher) run() {
	defer close(w.events)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			base := filepath.Base(ev.Name)
			if !strings.HasSuffix(base, metaSuffix) {
				continue
			}
			artifact := ArtifactEvent{
				ObjectiveID: filepath.Base(filepath.Dir(ev.Name)),
				Name:        strings.TrimSuffix(base, metaSuffix),
			}
			select {
			case w.events <- artifact:
			case <-w.done:
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the pump and releases the underlying watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
