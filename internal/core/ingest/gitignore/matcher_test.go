package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMatcherHardIgnoresGitDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main\n")

	m := NewMatcher(root)
	require.NoError(t, m.Load())

	assert := require.New(t)
	assert.True(m.IsIgnored(filepath.Join(root, ".git", "HEAD"), false))
}

func TestMatcherAppliesDefaultPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "module.exports = {}\n")

	m := NewMatcher(root)
	require.NoError(t, m.Load())

	require.True(t, m.IsIgnored(filepath.Join(root, "node_modules", "pkg", "index.js"), false))
}

func TestMatcherScopesGitignoreToItsDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", ".gitignore"), "*.log\n")
	writeFile(t, filepath.Join(root, "sub", "app.log"), "log line\n")
	writeFile(t, filepath.Join(root, "app.log"), "log line\n")

	m := NewMatcher(root)
	require.NoError(t, m.Load())

	require.True(t, m.IsIgnored(filepath.Join(root, "sub", "app.log"), false))
	require.False(t, m.IsIgnored(filepath.Join(root, "app.log"), false))
}

func TestMatcherAddGitignoreIncremental(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "build", "out.bin"), "binary\n")

	m := NewMatcher(root)
	require.NoError(t, m.Load())
	require.False(t, m.IsIgnored(filepath.Join(root, "notes.txt"), false))

	gitignorePath := filepath.Join(root, ".gitignore")
	writeFile(t, gitignorePath, "notes.txt\n")
	require.NoError(t, m.AddGitignore(gitignorePath))

	require.True(t, m.IsIgnored(filepath.Join(root, "notes.txt"), false))
}

func TestMatcherDirectoryOnlyPatternDoesNotMatchSameNamedFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep", "build"), "not a directory\n")

	m := NewMatcher(root)
	require.NoError(t, m.Load())

	// "build/" in the default pattern set is directory-only; a plain file
	// named "build" must survive even though the bare name collides.
	require.False(t, m.IsIgnored(filepath.Join(root, "keep", "build"), false))
	require.True(t, m.IsIgnored(filepath.Join(root, "keep", "build"), true))
}
