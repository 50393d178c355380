// Package watcher observes the sandbox root and classifies raw filesystem
// notifications into change events.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/docsman/internal/errors"
	"github.com/conneroisu/docsman/internal/logging"
	"github.com/conneroisu/docsman/internal/sandbox"
)

// EventType is the semantic kind of a change.
type EventType int

const (
	EventTypeModified EventType = iota
	EventTypeCreated
	EventTypeRemoved
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeModified:
		return "modified"
	case EventTypeCreated:
		return "created"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// ChangeEvent is a classified filesystem change. Path is set only for
// modifications, relative to the root with forward slashes. Creations and
// removals only signal that the legend is stale.
type ChangeEvent struct {
	Type EventType
	Path string
}

// Filter reports whether a root-relative path should produce events.
type Filter func(rel string) bool

// NoGitFilter drops anything inside a .git directory.
func NoGitFilter(rel string) bool {
	return rel != ".git" && !strings.HasPrefix(rel, ".git/") && !strings.Contains(rel, "/.git/") && !strings.HasSuffix(rel, "/.git")
}

const eventBuffer = 64

// FileWatcher watches a sandbox root recursively.
type FileWatcher struct {
	root    sandbox.Root
	watcher *fsnotify.Watcher
	filters []Filter
	events  chan ChangeEvent
	logger  logging.Logger

	// known holds the regular files seen under the root. Only the Run
	// goroutine touches it once construction returns.
	known map[string]struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewFileWatcher starts observing root and every directory below it. Failing
// to create the notifier or to watch the root itself is a WatchSetupError;
// subdirectories that cannot be watched are logged and skipped.
func NewFileWatcher(root sandbox.Root, logger logging.Logger, filters ...Filter) (*FileWatcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(filters) == 0 {
		filters = []Filter{NoGitFilter}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewWatchSetupError("ERR_WATCHER_INIT", "failed to create file watcher", err)
	}

	fw := &FileWatcher{
		root:    root,
		watcher: watcher,
		filters: filters,
		events:  make(chan ChangeEvent, eventBuffer),
		logger:  logger.WithComponent("watcher"),
		known:   make(map[string]struct{}),
	}

	if err := watcher.Add(root.Path()); err != nil {
		_ = watcher.Close()
		return nil, errors.NewWatchSetupError("ERR_WATCH_ROOT", "failed to watch root directory", err).
			WithContext("root", root.Path())
	}
	fw.addTree(root.Path())

	return fw, nil
}

// Events returns the channel of classified changes. It is closed when Run
// returns.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Run forwards classified events until ctx is done or the watcher is closed.
// Notification errors are logged and skipped.
func (fw *FileWatcher) Run(ctx context.Context) {
	defer close(fw.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			for _, change := range fw.handle(ctx, event) {
				select {
				case fw.events <- change:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

// Close stops the notifier. Repeated calls return the first result.
func (fw *FileWatcher) Close() error {
	fw.closeOnce.Do(func() {
		fw.closeErr = fw.watcher.Close()
	})
	return fw.closeErr
}

// handle classifies event, extends the watch to new directories and keeps
// the set of known files current.
func (fw *FileWatcher) handle(ctx context.Context, event fsnotify.Event) []ChangeEvent {
	change, ok := fw.classify(event)
	if !ok {
		return nil
	}

	rel, _ := fw.root.Relative(event.Name)
	changes := []ChangeEvent{change}

	switch change.Type {
	case EventTypeCreated:
		info, err := os.Lstat(event.Name)
		switch {
		case err != nil:
		case info.IsDir():
			// fsnotify is not recursive; follow directories as they appear.
			// The watch must be in place before the event is published.
			fw.addTree(event.Name)
		case info.Mode().IsRegular():
			// A file renamed over an existing page arrives as a bare Create
			// on the target. Editors save this way, so it is also a
			// modification of that page.
			if _, replaced := fw.known[rel]; replaced {
				changes = append(changes, ChangeEvent{Type: EventTypeModified, Path: rel})
			}
			fw.known[rel] = struct{}{}
		}
	case EventTypeRemoved:
		fw.forget(rel)
	}

	for _, c := range changes {
		fw.logger.Debug(ctx, "File change", "type", c.Type.String(), "path", c.Path)
	}
	return changes
}

// forget drops rel and, when rel was a directory, everything below it.
func (fw *FileWatcher) forget(rel string) {
	delete(fw.known, rel)
	prefix := rel + "/"
	for name := range fw.known {
		if strings.HasPrefix(name, prefix) {
			delete(fw.known, name)
		}
	}
}

// classify maps one raw notification onto a ChangeEvent. Write is a
// modification, Create a creation, Remove and Rename a removal. Chmod is
// ignored, so metadata-only changes (permissions, timestamps) never trigger
// a reload.
func (fw *FileWatcher) classify(event fsnotify.Event) (ChangeEvent, bool) {
	rel, inside := fw.root.Relative(event.Name)
	if !inside || rel == "." {
		return ChangeEvent{}, false
	}
	for _, filter := range fw.filters {
		if !filter(rel) {
			return ChangeEvent{}, false
		}
	}

	switch {
	case event.Has(fsnotify.Create):
		return ChangeEvent{Type: EventTypeCreated}, true
	case event.Has(fsnotify.Write):
		return ChangeEvent{Type: EventTypeModified, Path: rel}, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return ChangeEvent{Type: EventTypeRemoved}, true
	default:
		return ChangeEvent{}, false
	}
}

// addTree watches dir and its subdirectories, skipping what it cannot read.
func (fw *FileWatcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fw.logger.Warn(context.Background(), err, "Skipping unreadable path", "path", path)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, ok := fw.root.Relative(path)
		if ok && rel != "." {
			for _, filter := range fw.filters {
				if filter(rel) {
					continue
				}
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if !d.IsDir() {
			if ok && d.Type().IsRegular() {
				fw.known[rel] = struct{}{}
			}
			return nil
		}

		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn(context.Background(), err, "Failed to watch directory", "path", path)
		}
		return nil
	})
}
