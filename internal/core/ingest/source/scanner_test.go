package source

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScannerEmitsOneEventPerNonIgnoredFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep.js"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("x"), 0o644))

	s, err := NewScanner(root, testLogger())
	require.NoError(t, err)

	out := ingest.NewQueue[*ingest.FileContext](16, 0)
	require.NoError(t, s.Run(context.Background(), out))
	out.Close()

	var paths []string
	for {
		item, ok := out.Get()
		if !ok {
			break
		}
		paths = append(paths, item.Value.FilePath)
	}

	assert.ElementsMatch(t, []string{"a.py"}, paths)
}

func TestScannerRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.py"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))

	s, err := NewScanner(root, testLogger())
	require.NoError(t, err)

	out := ingest.NewQueue[*ingest.FileContext](16, 0)
	require.NoError(t, s.Run(context.Background(), out))
	out.Close()

	var paths []string
	for {
		item, ok := out.Get()
		if !ok {
			break
		}
		paths = append(paths, item.Value.FilePath)
	}

	assert.ElementsMatch(t, []string{"keep.py", ".gitignore"}, paths)
}
