package stages

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

// Embed turns each chunk's text into a vector, batching calls to the
// embedding transport. A chunk's embedding input is its LLM-generated
// summary when present, else its content truncated to 1000 characters —
// the same precedence the original ingestor's embed_stage.py uses, so a
// chunk still embeds usefully even when ChunkEnrich failed or was
// skipped.
type Embed struct {
	embedder  ingest.Embedder
	batchSize int
	limiter   *rate.Limiter
	log       *slog.Logger
}

// NewEmbed constructs the stage. requestedBatchSize is clipped against the
// embedder's own MaxBatchSize(), mirroring the teacher's
// EmbeddingBatchSize/MaxBatchSize() clamp.
func NewEmbed(embedder ingest.Embedder, requestedBatchSize int, ratePerSecond float64, log *slog.Logger) *Embed {
	batchSize := requestedBatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	if max := embedder.MaxBatchSize(); max > 0 && batchSize > max {
		batchSize = max
	}

	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}

	return &Embed{embedder: embedder, batchSize: batchSize, limiter: limiter, log: log}
}

func (e *Embed) Name() string { return "embed" }

func (e *Embed) Process(ctx context.Context, fc *ingest.FileContext) (*ingest.FileContext, error) {
	if fc.EventType == ingest.EventDelete || len(fc.Chunks) == 0 {
		fc.Status = ingest.StatusEmbedded
		return fc, nil
	}

	dim := e.embedder.Dimension()

	// Chunks whose embedding input is empty after the summary-or-content
	// substitution (a chunk with no summary and empty content) are dropped
	// from the batch entirely rather than sent to the embedder.
	embeddable := make([]*ingest.Chunk, 0, len(fc.Chunks))
	for _, chunk := range fc.Chunks {
		if embedInput(chunk) == "" {
			continue
		}
		embeddable = append(embeddable, chunk)
	}

	for start := 0; start < len(embeddable); start += e.batchSize {
		end := start + e.batchSize
		if end > len(embeddable) {
			end = len(embeddable)
		}
		batch := embeddable[start:end]

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				fc.AddError(err)
				continue
			}
		}

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = embedInput(chunk)
		}

		vectors, err := e.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			e.log.Warn("embed batch failed", "file_path", fc.FilePath, "batch_size", len(batch), "error", err)
			fc.AddError(fmt.Errorf("embed: %w", err))
			continue
		}
		if len(vectors) != len(batch) {
			fc.AddError(fmt.Errorf("embed: response count %d does not match request count %d", len(vectors), len(batch)))
			continue
		}

		for i, chunk := range batch {
			if dim > 0 && len(vectors[i]) != dim {
				fc.AddError(fmt.Errorf("embed: chunk %s vector dimension %d does not match expected %d", chunk.ID, len(vectors[i]), dim))
				continue
			}
			chunk.Embedding = vectors[i]
		}
	}

	fc.Status = ingest.StatusEmbedded
	return fc, nil
}

func embedInput(chunk *ingest.Chunk) string {
	if chunk.Summary != nil && *chunk.Summary != "" {
		return *chunk.Summary
	}
	content := chunk.Content
	if r := []rune(content); len(r) > 1000 {
		content = string(r[:1000])
	}
	return content
}

var _ ingest.Stage = (*Embed)(nil)
