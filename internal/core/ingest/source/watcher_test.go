package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/workspace-rag/internal/core/ingest"
	"github.com/jinford/workspace-rag/internal/core/ingest/gitignore"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	matcher := gitignore.NewMatcher(root)
	require.NoError(t, matcher.Load())
	return NewWatcher(root, matcher, testLogger())
}

// TestAddTreeWatchesContinuesPastAFailedWatchAdd forces every fsw.Add call
// to fail (by closing the fsnotify.Watcher first) and asserts the walk
// still completes without error, matching the log-and-continue contract:
// one subtree failing to watch must never abort the rest of the tree.
func TestAddTreeWatchesContinuesPastAFailedWatchAdd(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub1"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub2", "nested"), 0o755))

	w := newTestWatcher(t, root)

	fsw, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	require.NoError(t, fsw.Close())

	err = w.addTreeWatches(fsw)
	assert.NoError(t, err, "a failed watch-add must not abort the walk")
}

func TestWatcherEmitsCreateEventForNewFile(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	out := ingest.NewQueue[*ingest.FileContext](16, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx, out) }()

	// Give Run time to finish addTreeWatches and enter its select loop
	// before the write below fires the fsnotify event it's meant to catch.
	time.Sleep(100 * time.Millisecond)

	abs := filepath.Join(root, "new.py")
	require.NoError(t, os.WriteFile(abs, []byte("x"), 0o644))

	select {
	case item := <-out.Chan():
		assert.Equal(t, "new.py", item.Value.FilePath)
		assert.Equal(t, ingest.EventCreate, item.Value.EventType)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for create event")
	}

	cancel()
	require.NoError(t, <-runErr)
}

func TestWatcherSkipsGitignoredFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))
	w := newTestWatcher(t, root)

	out := ingest.NewQueue[*ingest.FileContext](16, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx, out) }()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.py"), []byte("x"), 0o644))

	select {
	case item := <-out.Chan():
		assert.Equal(t, "keep.py", item.Value.FilePath)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for create event")
	}

	cancel()
	require.NoError(t, <-runErr)
}
