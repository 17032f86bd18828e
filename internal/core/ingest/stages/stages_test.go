package stages

import (
	"context"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

// fakeChatClient is the ChunkEnrich test double: returns a canned
// summary/purpose pair without making any network call.
type fakeChatClient struct {
	calls int
	err   error
}

func (f *fakeChatClient) SummarizeChunk(ctx context.Context, req ingest.ChunkSummaryRequest) (ingest.ChunkSummaryResult, error) {
	f.calls++
	if f.err != nil {
		return ingest.ChunkSummaryResult{}, f.err
	}
	return ingest.ChunkSummaryResult{Summary: "a summary", Purpose: "a purpose"}, nil
}

// fakeEmbedder is the Embed test double: returns a fixed-width zero vector
// per input text, in order.
type fakeEmbedder struct {
	dim      int
	maxBatch int
	err      error
}

func (f *fakeEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		for j := range vec {
			vec[j] = float32(i)
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

func (f *fakeEmbedder) MaxBatchSize() int {
	if f.maxBatch <= 0 {
		return 100
	}
	return f.maxBatch
}
