// Package source implements the two producers that feed FileContext events
// onto the pipeline's first queue: a one-shot recursive workspace Scanner
// and a live Watcher backed by fsnotify.
package source

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jinford/workspace-rag/internal/core/ingest"
	"github.com/jinford/workspace-rag/internal/core/ingest/gitignore"
)

// Scanner walks a workspace root once, emitting a scan event for every
// non-ignored regular file it finds. Used for the initial full index and
// for `index scan` one-shot runs.
type Scanner struct {
	root    string
	matcher *gitignore.Matcher
	log     *slog.Logger
}

// NewScanner builds a Scanner with its own pre-loaded gitignore matcher.
func NewScanner(root string, log *slog.Logger) (*Scanner, error) {
	matcher := gitignore.NewMatcher(root)
	if err := matcher.Load(); err != nil {
		return nil, err
	}
	return &Scanner{root: root, matcher: matcher, log: log}, nil
}

func (s *Scanner) Name() string { return "scanner" }

// Run walks the workspace once and returns after every file has been
// pushed to out (or the context is canceled). Callers that want the
// pipeline to fully drain a scan before shutting down should register this
// source with Orchestrator.AddSource(ctx, scanner, wait=true).
func (s *Scanner) Run(ctx context.Context, out *ingest.Queue[*ingest.FileContext]) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Warn("scanner walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if s.matcher.IsIgnored(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.log.Warn("scanner stat error", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}

		out.Put(ingest.NewItem(&ingest.FileContext{
			FilePath:  filepath.ToSlash(rel),
			AbsPath:   path,
			EventType: ingest.EventScan,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Status:    ingest.StatusPending,
		}))
		return nil
	})
}

var _ ingest.Source = (*Scanner)(nil)

// statSafe is used by the watcher to re-derive size/mtime for a create or
// modify event without failing the whole event if the file already
// vanished by the time it's processed.
func statSafe(path string) (os.FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	return info, true
}
