// Package filewatcher provides file system monitoring adapters.
package filewatcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
)

// FSNotifyWatcher implements ports.FileWatcher for a single file using
// fsnotify. It watches the file's directory so that editors and atomic
// rename-into-place writes are seen, and collapses bursts of events that
// arrive within the debounce window into one.
type FSNotifyWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger
}

var _ ports.FileWatcher = (*FSNotifyWatcher)(nil)

// NewFSNotifyWatcher creates a new file watcher.
func NewFSNotifyWatcher(debounce time.Duration, logger zerolog.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &FSNotifyWatcher{
		watcher:  w,
		debounce: debounce,
		logger:   logger.With().Str("adapter", "filewatcher").Logger(),
	}, nil
}

// Watch starts monitoring path and emits events for it until ctx is done.
func (w *FSNotifyWatcher) Watch(ctx context.Context, path string) (<-chan ports.FileEvent, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 1)
	go w.loop(ctx, abs, events)
	return events, nil
}

func (w *FSNotifyWatcher) loop(ctx context.Context, path string, events chan<- ports.FileEvent) {
	defer close(events)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var pending *ports.FileEvent
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			op, ok := operation(event.Op)
			if !ok {
				continue
			}
			if pending == nil {
				timer.Reset(w.debounce)
			}
			pending = &ports.FileEvent{Path: path, Operation: op}

		case <-timer.C:
			if pending == nil {
				continue
			}
			select {
			case events <- *pending:
			case <-ctx.Done():
				return
			}
			pending = nil

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Str("path", path).Msg("watch error")
		}
	}
}

// operation maps an fsnotify op onto a FileOperation. A rename onto the
// watched name arrives as Create; a rename away from it as Rename.
func operation(op fsnotify.Op) (ports.FileOperation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return ports.FileCreated, true
	case op.Has(fsnotify.Write):
		return ports.FileModified, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ports.FileDeleted, true
	default:
		return 0, false
	}
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}
