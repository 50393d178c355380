package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docsman/internal/errors"
	"github.com/conneroisu/docsman/internal/sandbox"
)

func newRoot(t *testing.T) sandbox.Root {
	t.Helper()

	root, err := sandbox.NewRoot(t.TempDir())
	require.NoError(t, err)
	return root
}

func startWatcher(t *testing.T, root sandbox.Root) *FileWatcher {
	t.Helper()

	fw, err := NewFileWatcher(root, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fw.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		_ = fw.Close()
		<-done
	})

	return fw
}

// waitFor returns the first event matching want, failing after a timeout.
func waitFor(t *testing.T, fw *FileWatcher, want ChangeEvent) {
	t.Helper()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case got, ok := <-fw.Events():
			require.True(t, ok, "event channel closed")
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %+v", want)
		}
	}
}

func appendTo(t *testing.T, path, text string) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeModified, "modified"},
		{EventTypeCreated, "created"},
		{EventTypeRemoved, "removed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestClassify(t *testing.T) {
	root := newRoot(t)
	fw := &FileWatcher{root: root, filters: []Filter{NoGitFilter}}
	at := func(rel string) string { return filepath.Join(root.Path(), filepath.FromSlash(rel)) }

	testCases := []struct {
		name     string
		event    fsnotify.Event
		expected ChangeEvent
		emit     bool
	}{
		{"write", fsnotify.Event{Name: at("guide.md"), Op: fsnotify.Write}, ChangeEvent{Type: EventTypeModified, Path: "guide.md"}, true},
		{"nested write", fsnotify.Event{Name: at("sub/b.md"), Op: fsnotify.Write}, ChangeEvent{Type: EventTypeModified, Path: "sub/b.md"}, true},
		{"create", fsnotify.Event{Name: at("new.md"), Op: fsnotify.Create}, ChangeEvent{Type: EventTypeCreated}, true},
		{"remove", fsnotify.Event{Name: at("old.md"), Op: fsnotify.Remove}, ChangeEvent{Type: EventTypeRemoved}, true},
		{"rename", fsnotify.Event{Name: at("old.md"), Op: fsnotify.Rename}, ChangeEvent{Type: EventTypeRemoved}, true},
		{"chmod", fsnotify.Event{Name: at("guide.md"), Op: fsnotify.Chmod}, ChangeEvent{}, false},
		{"git internals", fsnotify.Event{Name: at(".git/index"), Op: fsnotify.Write}, ChangeEvent{}, false},
		{"outside root", fsnotify.Event{Name: filepath.Join(filepath.Dir(root.Path()), "x.md"), Op: fsnotify.Write}, ChangeEvent{}, false},
		{"root itself", fsnotify.Event{Name: root.Path(), Op: fsnotify.Write}, ChangeEvent{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, emit := fw.classify(tc.event)
			assert.Equal(t, tc.emit, emit)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNoGitFilter(t *testing.T) {
	assert.True(t, NoGitFilter("guide.md"))
	assert.True(t, NoGitFilter("docs/.gitignore"))
	assert.False(t, NoGitFilter(".git"))
	assert.False(t, NoGitFilter(".git/HEAD"))
	assert.False(t, NoGitFilter("vendor/.git/HEAD"))
	assert.False(t, NoGitFilter("vendor/.git"))
}

func TestNewFileWatcherMissingRoot(t *testing.T) {
	root := newRoot(t)
	require.NoError(t, os.Remove(root.Path()))

	_, err := NewFileWatcher(root, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrWatchSetup)
}

func TestWatcherReportsModification(t *testing.T) {
	root := newRoot(t)
	guide := filepath.Join(root.Path(), "guide.md")
	require.NoError(t, os.WriteFile(guide, []byte("# Guide\n"), 0o644))

	fw := startWatcher(t, root)
	appendTo(t, guide, "more\n")

	waitFor(t, fw, ChangeEvent{Type: EventTypeModified, Path: "guide.md"})
}

func TestWatcherReportsCreateAndRemove(t *testing.T) {
	root := newRoot(t)
	fw := startWatcher(t, root)

	path := filepath.Join(root.Path(), "new.md")
	require.NoError(t, os.WriteFile(path, []byte("# New\n"), 0o644))
	waitFor(t, fw, ChangeEvent{Type: EventTypeCreated})

	require.NoError(t, os.Remove(path))
	waitFor(t, fw, ChangeEvent{Type: EventTypeRemoved})
}

// drain collects events until quiet passes without one.
func drain(t *testing.T, fw *FileWatcher, quiet time.Duration) []ChangeEvent {
	t.Helper()

	var events []ChangeEvent
	for {
		select {
		case got, ok := <-fw.Events():
			if !ok {
				return events
			}
			events = append(events, got)
		case <-time.After(quiet):
			return events
		}
	}
}

func TestWatcherReportsRenameOverAsModification(t *testing.T) {
	root := newRoot(t)
	guide := filepath.Join(root.Path(), "guide.md")
	tmp := filepath.Join(root.Path(), ".guide.md.tmp")
	require.NoError(t, os.WriteFile(guide, []byte("# Guide\n"), 0o644))
	require.NoError(t, os.WriteFile(tmp, []byte("# Guide, saved\n"), 0o644))

	fw := startWatcher(t, root)
	require.NoError(t, os.Rename(tmp, guide))

	events := drain(t, fw, 500*time.Millisecond)
	assert.Contains(t, events, ChangeEvent{Type: EventTypeModified, Path: "guide.md"}, "events: %+v", events)
	assert.Contains(t, events, ChangeEvent{Type: EventTypeCreated}, "events: %+v", events)
}

func TestWatcherNewFileIsNotModifiedOnCreate(t *testing.T) {
	root := newRoot(t)
	old := filepath.Join(root.Path(), "old.md")
	require.NoError(t, os.WriteFile(old, []byte("# Old\n"), 0o644))

	fw := startWatcher(t, root)

	f, err := os.Create(filepath.Join(root.Path(), "new.md"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// A page removed and then recreated is new again.
	require.NoError(t, os.Remove(old))
	f, err = os.Create(old)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events := drain(t, fw, 500*time.Millisecond)
	assert.Equal(t, []ChangeEvent{
		{Type: EventTypeCreated},
		{Type: EventTypeRemoved},
		{Type: EventTypeCreated},
	}, events)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := newRoot(t)
	fw := startWatcher(t, root)

	sub := filepath.Join(root.Path(), "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitFor(t, fw, ChangeEvent{Type: EventTypeCreated})

	nested := filepath.Join(sub, "deep.md")
	require.NoError(t, os.WriteFile(nested, []byte("x"), 0o644))
	waitFor(t, fw, ChangeEvent{Type: EventTypeModified, Path: "sub/deep.md"})
}

func TestWatcherWatchesExistingSubdirectories(t *testing.T) {
	root := newRoot(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root.Path(), "a", "b"), 0o755))
	nested := filepath.Join(root.Path(), "a", "b", "c.md")
	require.NoError(t, os.WriteFile(nested, []byte("x"), 0o644))

	fw := startWatcher(t, root)
	appendTo(t, nested, "y")

	waitFor(t, fw, ChangeEvent{Type: EventTypeModified, Path: "a/b/c.md"})
}

func TestRunClosesEventsOnCancel(t *testing.T) {
	root := newRoot(t)
	fw, err := NewFileWatcher(root, nil)
	require.NoError(t, err)
	defer fw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fw.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, ok := <-fw.Events()
	assert.False(t, ok)
}

func TestCloseIsIdempotent(t *testing.T) {
	fw, err := NewFileWatcher(newRoot(t), nil)
	require.NoError(t, err)

	assert.NoError(t, fw.Close())
	assert.NoError(t, fw.Close())
}
