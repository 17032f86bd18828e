package stages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

func TestChunkEnrichSetsSummaryAndPurposeOnEachChunk(t *testing.T) {
	client := &fakeChatClient{}
	lock := ingest.NewLockCoordinator()
	c := NewChunkEnrich(client, lock, 0, discardLogger())

	fc := &ingest.FileContext{
		FilePath: "a.py",
		Chunks: []*ingest.Chunk{
			{ID: "c0", Content: "one"},
			{ID: "c1", Content: "two"},
		},
	}

	result, err := c.Process(context.Background(), fc)
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusEnriched, result.Status)
	assert.Equal(t, 2, client.calls)
	for _, chunk := range result.Chunks {
		require.NotNil(t, chunk.Summary)
		require.NotNil(t, chunk.Purpose)
		assert.Equal(t, "a summary", *chunk.Summary)
		assert.Equal(t, "a purpose", *chunk.Purpose)
	}
}

func TestChunkEnrichSkipsDeleteEventAndEmptyChunks(t *testing.T) {
	client := &fakeChatClient{}
	lock := ingest.NewLockCoordinator()
	c := NewChunkEnrich(client, lock, 0, discardLogger())

	fc := &ingest.FileContext{FilePath: "gone.py", EventType: ingest.EventDelete}
	result, err := c.Process(context.Background(), fc)
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusEnriched, result.Status)
	assert.Equal(t, 0, client.calls)
}

func TestChunkEnrichRecordsErrorsFromFailedCalls(t *testing.T) {
	client := &fakeChatClient{err: assert.AnError}
	lock := ingest.NewLockCoordinator()
	c := NewChunkEnrich(client, lock, 0, discardLogger())

	fc := &ingest.FileContext{
		FilePath: "a.py",
		Chunks:   []*ingest.Chunk{{ID: "c0", Content: "one"}},
	}

	result, err := c.Process(context.Background(), fc)
	require.NoError(t, err)
	assert.True(t, result.HasErrors())
}

func TestChunkEnrichWaitsForLockToClear(t *testing.T) {
	client := &fakeChatClient{}
	lock := ingest.NewLockCoordinator()
	lock.SetLock("manual pause", 100*time.Millisecond)
	c := NewChunkEnrich(client, lock, 0, discardLogger())

	fc := &ingest.FileContext{
		FilePath: "a.py",
		Chunks:   []*ingest.Chunk{{ID: "c0", Content: "one"}},
	}

	start := time.Now()
	result, err := c.Process(context.Background(), fc)
	require.NoError(t, err)
	assert.False(t, result.HasErrors())
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
