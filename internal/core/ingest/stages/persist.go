package stages

import (
	"context"
	"fmt"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

// Persist writes a file's chunks to Storage using delete-then-insert: the
// existing rows for the file are always removed first, then (unless the
// file has no chunks, was a delete event, or already carries errors) the
// fresh set is inserted. This avoids leftover rows from a previous chunk
// split surviving a re-split that produces fewer chunks than before — a
// pure upsert keyed by chunk ID cannot detect "this chunk index no longer
// exists".
type Persist struct {
	storage ingest.Storage
}

func NewPersist(storage ingest.Storage) *Persist {
	return &Persist{storage: storage}
}

func (p *Persist) Name() string { return "persist" }

func (p *Persist) Process(ctx context.Context, fc *ingest.FileContext) (*ingest.FileContext, error) {
	if err := p.storage.DeleteChunksByFilePaths(ctx, []string{fc.FilePath}); err != nil {
		fc.AddError(fmt.Errorf("persist: delete %s: %w", fc.FilePath, err))
		fc.Status = ingest.StatusFailed
		return fc, err
	}

	if fc.EventType == ingest.EventDelete || fc.HasErrors() || len(fc.Chunks) == 0 {
		fc.Status = ingest.StatusPersisted
		return fc, nil
	}

	if err := p.storage.SaveChunks(ctx, fc.FilePath, fc.Chunks); err != nil {
		fc.AddError(fmt.Errorf("persist: save %s: %w", fc.FilePath, err))
		fc.Status = ingest.StatusFailed
		return fc, err
	}

	fc.Status = ingest.StatusPersisted
	return fc, nil
}

var _ ingest.Stage = (*Persist)(nil)
