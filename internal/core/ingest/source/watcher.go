package source

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jinford/workspace-rag/internal/core/ingest"
	"github.com/jinford/workspace-rag/internal/core/ingest/gitignore"
)

// Watcher is the live filesystem source: it watches the workspace root and
// every subdirectory (adding watches dynamically as new directories
// appear) and translates fsnotify events into create/modify/delete
// FileContext events. Unlike Scanner, Run never returns on its own — it is
// registered with Orchestrator.AddSource(ctx, watcher, wait=false) and
// stops only when ctx is canceled.
type Watcher struct {
	root    string
	matcher *gitignore.Matcher
	log     *slog.Logger
}

// NewWatcher builds a Watcher around the given gitignore matcher, which it
// extends with AddGitignore as .gitignore files are created or modified
// rather than recompiling from scratch. The Scanner loads a matcher of its
// own; the two are not shared.
func NewWatcher(root string, matcher *gitignore.Matcher, log *slog.Logger) *Watcher {
	return &Watcher{root: root, matcher: matcher, log: log}
}

func (w *Watcher) Name() string { return "watcher" }

func (w *Watcher) Run(ctx context.Context, out *ingest.Queue[*ingest.FileContext]) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addTreeWatches(fsw); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Cooperative tick: fsnotify delivers events asynchronously on
			// its own channels below, this ticker exists only to give the
			// select a reason to re-check ctx.Done() promptly on systems
			// where events are sparse.
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event, out)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event, out *ingest.Queue[*ingest.FileContext]) {
	if filepath.Base(event.Name) == ".git" {
		return
	}

	if info, ok := statSafe(event.Name); ok && info.IsDir() {
		if event.Op&(fsnotify.Create) != 0 && !w.matcher.IsIgnored(event.Name, true) {
			if err := fsw.Add(event.Name); err != nil {
				w.log.Warn("watcher failed to add subdirectory watch", "path", event.Name, "error", err)
			}
		}
		return
	}

	if filepath.Base(event.Name) == ".gitignore" {
		_ = w.matcher.AddGitignore(event.Name)
	}

	if w.matcher.IsIgnored(event.Name, false) {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		rel = event.Name
	}
	rel = filepath.ToSlash(rel)

	switch {
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		out.Put(ingest.NewItem(&ingest.FileContext{
			FilePath:  rel,
			AbsPath:   event.Name,
			EventType: ingest.EventDelete,
			Status:    ingest.StatusPending,
		}))
	case event.Op&fsnotify.Create != 0:
		w.emitIfReadable(event.Name, rel, ingest.EventCreate, out)
	case event.Op&fsnotify.Write != 0:
		w.emitIfReadable(event.Name, rel, ingest.EventModify, out)
	}
}

func (w *Watcher) emitIfReadable(absPath, relPath string, eventType ingest.EventType, out *ingest.Queue[*ingest.FileContext]) {
	info, ok := statSafe(absPath)
	if !ok {
		return
	}
	out.Put(ingest.NewItem(&ingest.FileContext{
		FilePath:  relPath,
		AbsPath:   absPath,
		EventType: eventType,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Status:    ingest.StatusPending,
	}))
}

// addTreeWatches registers an inotify watch on every non-ignored directory
// under root. A failed add (ENOSPC, inotify watch limit, permission denied)
// is logged and that one subtree is left unwatched; it never aborts the
// rest of the walk.
func (w *Watcher) addTreeWatches(fsw *fsnotify.Watcher) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if w.matcher.IsIgnored(path, true) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.log.Warn("watcher failed to add directory watch", "path", path, "error", err)
			return filepath.SkipDir
		}
		return nil
	})
}

var _ ingest.Source = (*Watcher)(nil)
