// Package gitignore implements hierarchical, per-directory .gitignore
// matching: one compiled matcher per discovered .gitignore file, scoped to
// the directory it lives in, with ancestor-path matching against any
// deeper file or directory. IsIgnored does no I/O; Load and AddGitignore
// read .gitignore files and change the scope list. A Matcher takes no lock:
// AddGitignore must not run concurrently with IsIgnored or another
// AddGitignore on the same Matcher.
package gitignore

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// defaultPatterns are ignored everywhere regardless of any .gitignore
// content, mirroring what a developer workspace never wants indexed.
var defaultPatterns = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"vendor/",
	"__pycache__/",
	"*.pyc",
	".DS_Store",
	"*.egg-info/",
	".venv/",
	"venv/",
	".tox/",
	"dist/",
	"build/",
	".idea/",
	".vscode/",
}

// scopedMatcher is one compiled .gitignore bound to the directory that
// contains it.
type scopedMatcher struct {
	dir string
	gi  *ignore.GitIgnore
}

// Matcher answers IsIgnored(path) against every .gitignore discovered
// under a workspace root, each scoped to its own directory.
type Matcher struct {
	root     string
	scopes   []scopedMatcher
	defaults *ignore.GitIgnore
}

// NewMatcher compiles the always-on default pattern set. Call Load (once,
// up front) or AddGitignore (as the watcher sees new .gitignore files) to
// add per-directory scopes.
func NewMatcher(root string) *Matcher {
	return &Matcher{
		root:     root,
		defaults: ignore.CompileIgnoreLines(defaultPatterns...),
	}
}

// Load walks root and compiles every .gitignore file it finds into a
// directory-scoped matcher. Call this once at startup; the Watcher calls
// AddGitignore incrementally afterward as .gitignore files are created or
// modified.
func (m *Matcher) Load() error {
	return filepath.WalkDir(m.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}
		return m.AddGitignore(path)
	})
}

// AddGitignore compiles a single .gitignore file at gitignorePath and
// registers it scoped to its containing directory. Safe to call repeatedly
// for the same file (e.g. the watcher reacting to a modify event); the new
// compile replaces the old scope for that directory.
func (m *Matcher) AddGitignore(gitignorePath string) error {
	lines, err := readLines(gitignorePath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(gitignorePath)
	gi := ignore.CompileIgnoreLines(lines...)

	for i := range m.scopes {
		if m.scopes[i].dir == dir {
			m.scopes[i].gi = gi
			return nil
		}
	}
	m.scopes = append(m.scopes, scopedMatcher{dir: dir, gi: gi})
	// Longest-directory-first so the most specific scope is tried first;
	// correctness doesn't depend on order (every matching ancestor scope
	// is consulted) but this keeps IsIgnored's common case cheap.
	sort.Slice(m.scopes, func(i, j int) bool {
		return len(m.scopes[i].dir) > len(m.scopes[j].dir)
	})
	return nil
}

// IsIgnored reports whether absPath should be excluded from ingestion:
// hard-ignored defaults first, then every .gitignore scope whose directory
// is an ancestor of absPath, relative to that scope's own directory. isDir
// distinguishes a directory-only pattern (e.g. "build/") from a same-named
// file: callers must report what absPath actually is, since a trailing
// slash is the only thing go-gitignore's MatchesPath uses to tell them
// apart.
func (m *Matcher) IsIgnored(absPath string, isDir bool) bool {
	rel, err := filepath.Rel(m.root, absPath)
	if err == nil && m.defaults.MatchesPath(asCandidate(rel, isDir)) {
		return true
	}
	if m.defaults.MatchesPath(asCandidate(filepath.ToSlash(absPath), isDir)) {
		return true
	}

	for _, scope := range m.scopes {
		if !isAncestor(scope.dir, absPath) {
			continue
		}
		relToScope, err := filepath.Rel(scope.dir, absPath)
		if err != nil {
			continue
		}
		if scope.gi.MatchesPath(asCandidate(filepath.ToSlash(relToScope), isDir)) {
			return true
		}
	}
	return false
}

// asCandidate appends the trailing slash go-gitignore needs to resolve a
// directory-only pattern like "build/" against a directory candidate,
// distinguishing it from an identically-named file.
func asCandidate(relSlash string, isDir bool) string {
	if isDir && relSlash != "" && !strings.HasSuffix(relSlash, "/") {
		return relSlash + "/"
	}
	return relSlash
}

func isAncestor(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	if dir == path {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
