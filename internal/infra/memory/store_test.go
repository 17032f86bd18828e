package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

func TestStoreSaveAndDeleteChunks(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	chunks := []*ingest.Chunk{
		{ID: "c1", FilePath: "a.go", Index: 0, Content: "package a"},
	}
	require.NoError(t, s.SaveChunks(ctx, "a.go", chunks))

	results, err := s.SearchVector(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, results) // no embeddings saved yet

	require.NoError(t, s.DeleteChunksByFilePaths(ctx, []string{"a.go"}))
}

func TestStoreSaveFileSummaryAndGetMetadata(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.SaveFileSummary(ctx, &ingest.FileSummary{
		FilePath: "a.go",
		Summary:  "does a thing",
		Metadata: ingest.FileSummaryMetadata{ModTime: now, Checksum: "abc", Size: 10, Valid: true},
	}))

	meta, err := s.GetFilesMetadata(ctx, []string{"a.go", "missing.go"})
	require.NoError(t, err)
	require.Contains(t, meta, "a.go")
	assert.NotContains(t, meta, "missing.go")
	assert.Equal(t, "abc", meta["a.go"].Checksum)
}

func TestStoreSearchVectorRanksByCosineDistance(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	chunks := []*ingest.Chunk{
		{ID: "same", FilePath: "f.go", Index: 0, Content: "x", Embedding: []float32{1, 0}},
		{ID: "opposite", FilePath: "f.go", Index: 1, Content: "y", Embedding: []float32{-1, 0}},
	}
	require.NoError(t, s.SaveChunks(ctx, "f.go", chunks))

	results, err := s.SearchVector(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "same", results[0].ID)
	assert.Equal(t, "opposite", results[1].ID)
}

func TestStoreGetEmbeddingDimensionDerivedFromFirstSavedVector(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	dim, err := s.GetEmbeddingDimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dim)

	require.NoError(t, s.SaveChunks(ctx, "f.go", []*ingest.Chunk{
		{ID: "c1", Embedding: []float32{1, 2, 3}},
	}))

	dim, err = s.GetEmbeddingDimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)
}

var _ ingest.Storage = (*Store)(nil)
