package stages

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

const chunkEnrichTimeout = 60 * time.Second

// ChunkEnrich issues one LLM call per chunk to produce a short summary and
// purpose, fanning out across a file's chunks concurrently and fanning
// back in before the FileContext moves to Embed. Every call first waits
// for the LockCoordinator to clear (an operator can pause enrichment
// without stopping the pipeline) and is gated by a shared rate.Limiter so
// the configured requests/sec budget holds across every ChunkEnrich
// worker in the pipeline, not per-worker.
type ChunkEnrich struct {
	client  ingest.ChatClient
	lock    *ingest.LockCoordinator
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewChunkEnrich constructs the stage. ratePerSecond <= 0 disables
// limiting.
func NewChunkEnrich(client ingest.ChatClient, lock *ingest.LockCoordinator, ratePerSecond float64, log *slog.Logger) *ChunkEnrich {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &ChunkEnrich{client: client, lock: lock, limiter: limiter, log: log}
}

func (c *ChunkEnrich) Name() string { return "chunk_enrich" }

func (c *ChunkEnrich) Process(ctx context.Context, fc *ingest.FileContext) (*ingest.FileContext, error) {
	if fc.EventType == ingest.EventDelete || len(fc.Chunks) == 0 {
		fc.Status = ingest.StatusEnriched
		return fc, nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, chunk := range fc.Chunks {
		wg.Add(1)
		go func(chunk *ingest.Chunk) {
			defer wg.Done()
			if err := c.enrichOne(ctx, fc.FilePath, chunk); err != nil {
				mu.Lock()
				fc.AddError(err)
				mu.Unlock()
			}
		}(chunk)
	}
	wg.Wait()

	fc.Status = ingest.StatusEnriched
	return fc, nil
}

func (c *ChunkEnrich) enrichOne(ctx context.Context, filePath string, chunk *ingest.Chunk) error {
	if err := c.lock.WaitUnlocked(ctx, 500*time.Millisecond); err != nil {
		return err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, chunkEnrichTimeout)
	defer cancel()

	result, err := c.client.SummarizeChunk(callCtx, ingest.ChunkSummaryRequest{
		FilePath: filePath,
		Content:  chunk.Content,
		Type:     chunk.Type,
	})
	if err != nil {
		c.log.Warn("chunk_enrich call failed", "file_path", filePath, "chunk_id", chunk.ID, "error", err)
		return err
	}

	summary := result.Summary
	purpose := result.Purpose
	chunk.Summary = &summary
	chunk.Purpose = &purpose
	return nil
}

var _ ingest.Stage = (*ChunkEnrich)(nil)
