package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/workspace-rag/internal/core/ingest"
	"github.com/jinford/workspace-rag/internal/infra/memory"
)

func TestFileSummarySavesChecksumAndMetadata(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(abs, []byte("print(1)\n"), 0o644))

	store := memory.NewStore()
	s := NewFileSummary(store)

	summary := "does a thing"
	fc := &ingest.FileContext{
		FilePath:  "a.py",
		AbsPath:   abs,
		EventType: ingest.EventScan,
		Chunks:    []*ingest.Chunk{{ID: "c1", Summary: &summary}},
	}

	result, err := s.Process(context.Background(), fc)
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusPersisted, result.Status)
	assert.NotEmpty(t, result.Checksum)

	meta, err := store.GetFilesMetadata(context.Background(), []string{"a.py"})
	require.NoError(t, err)
	require.Contains(t, meta, "a.py")
	assert.Equal(t, result.Checksum, meta["a.py"].Checksum)
}

func TestFileSummaryNoOpOnDeleteEvent(t *testing.T) {
	store := memory.NewStore()
	s := NewFileSummary(store)

	fc := &ingest.FileContext{FilePath: "gone.py", EventType: ingest.EventDelete}
	result, err := s.Process(context.Background(), fc)
	require.NoError(t, err)
	assert.Empty(t, result.Checksum)

	meta, err := store.GetFilesMetadata(context.Background(), []string{"gone.py"})
	require.NoError(t, err)
	assert.NotContains(t, meta, "gone.py")
}

func TestFileSummaryNoOpWhenFileVanished(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "ghost.py")

	store := memory.NewStore()
	s := NewFileSummary(store)

	fc := &ingest.FileContext{FilePath: "ghost.py", AbsPath: abs, EventType: ingest.EventScan}
	result, err := s.Process(context.Background(), fc)
	require.NoError(t, err)
	assert.Empty(t, result.Checksum)
}

func TestFileSummaryRecordsInvalidReasonWhenFileContextHasErrors(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(abs, []byte("x"), 0o644))

	store := &capturingStorage{}
	s := NewFileSummary(store)

	fc := &ingest.FileContext{FilePath: "a.py", AbsPath: abs, EventType: ingest.EventScan}
	fc.AddError(assert.AnError)

	_, err := s.Process(context.Background(), fc)
	require.NoError(t, err)

	require.NotNil(t, store.saved)
	assert.False(t, store.saved.Metadata.Valid)
	assert.Contains(t, store.saved.Metadata.InvalidReason, assert.AnError.Error())
}

// capturingStorage records the last FileSummary saved, so tests can inspect
// fields (InvalidReason, InvalidTimestamp) that memory.Store's Storage port
// doesn't expose back out through GetFilesMetadata.
type capturingStorage struct {
	ingest.Storage
	saved *ingest.FileSummary
}

func (c *capturingStorage) SaveFileSummary(ctx context.Context, summary *ingest.FileSummary) error {
	cp := *summary
	c.saved = &cp
	return nil
}

func TestFileSummaryJoinsAllErrorsIntoInvalidReasonAndStampsTimestamp(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(abs, []byte("x"), 0o644))

	store := &capturingStorage{}
	s := NewFileSummary(store)

	fc := &ingest.FileContext{FilePath: "a.py", AbsPath: abs, EventType: ingest.EventScan}
	first := assert.AnError
	second := fmt.Errorf("second failure")
	fc.AddError(first)
	fc.AddError(second)

	_, err := s.Process(context.Background(), fc)
	require.NoError(t, err)

	require.NotNil(t, store.saved)
	assert.Contains(t, store.saved.Metadata.InvalidReason, first.Error())
	assert.Contains(t, store.saved.Metadata.InvalidReason, second.Error())
	assert.False(t, store.saved.Metadata.InvalidTimestamp.IsZero())
}
