// Package watcher reports changes to a single growing file, such as a build
// event log written by another process.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/compdb/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeWrite means data was appended or the file was truncated.
	ChangeTypeWrite ChangeType = iota
	// ChangeTypeCreate means the file appeared, possibly replacing an older one.
	ChangeTypeCreate
	// ChangeTypeRemove means the file was removed or renamed away.
	ChangeTypeRemove
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeWrite:
		return "write"
	case ChangeTypeCreate:
		return "create"
	case ChangeTypeRemove:
		return "remove"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes of one type
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches one file through its parent directory, so the file may
// be created, replaced or removed while being watched.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for path. The parent directory must exist.
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{
		watcher: w,
		path:    abs,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Path returns the absolute path being watched.
func (fw *FileWatcher) Path() string {
	return fw.path
}

// Start begins delivering events until ctx is cancelled. The events channel is
// closed when delivery stops.
func (fw *FileWatcher) Start(ctx context.Context) {
	logging.Info("started watching file", "path", fw.path)
	go fw.processEvents(ctx)
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			t, ok := classify(event.Op)
			if !ok {
				continue
			}
			logging.Trace("file event", "path", event.Name, "op", event.Op.String())

			select {
			case fw.events <- ChangeEvent{Type: t, Paths: []string{event.Name}, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// classify maps an fsnotify operation to a change type. Chmod is ignored.
func classify(op fsnotify.Op) (ChangeType, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ChangeTypeRemove, true
	case op.Has(fsnotify.Create):
		return ChangeTypeCreate, true
	case op.Has(fsnotify.Write):
		return ChangeTypeWrite, true
	}
	return 0, false
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
