package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

const embedTimeout = 60 * time.Second

// Metadata describes the embedding model an Embedder is bound to.
type Metadata struct {
	ModelName string
	Dimension int
}

// Embedder generates vectors via the OpenAI embeddings API.
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
}

// Option configures an Embedder at construction time.
type Option func(*Embedder)

// WithEmbeddingModel overrides the default embedding model.
func WithEmbeddingModel(model string) Option {
	return func(e *Embedder) { e.model = model }
}

// WithEmbeddingDimension overrides the default vector width requested from
// the API (only meaningful for models that support a variable output
// dimension, e.g. text-embedding-3-small/large).
func WithEmbeddingDimension(dimension int) Option {
	return func(e *Embedder) { e.dimension = dimension }
}

const (
	defaultEmbeddingModel     = "text-embedding-3-small"
	defaultEmbeddingDimension = 1536
)

// NewEmbedder builds an Embedder against the OpenAI API using apiKey,
// applying any Options over the package defaults.
func NewEmbedder(apiKey string, opts ...Option) *Embedder {
	e := &Embedder{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     defaultEmbeddingModel,
		dimension: defaultEmbeddingDimension,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed generates the embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("openai: no embeddings generated")
	}
	return embeddings[0], nil
}

// BatchEmbed generates embeddings for up to MaxBatchSize texts in one
// call, preserving input order in the response.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("openai: no texts provided")
	}
	if len(texts) > e.MaxBatchSize() {
		return nil, fmt.Errorf("openai: batch size %d exceeds maximum of %d", len(texts), e.MaxBatchSize())
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}
	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(texts[0])}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	var embeddings [][]float32
	policy := backoff.WithContext(newRetryPolicy(), ctx)
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, embedTimeout)
		defer cancel()

		resp, err := e.client.Embeddings.New(callCtx, params)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		out := make([][]float32, len(resp.Data))
		for _, data := range resp.Data {
			vector := make([]float32, len(data.Embedding))
			for i, v := range data.Embedding {
				vector[i] = float32(v)
			}
			if int(data.Index) < len(out) {
				out[data.Index] = vector
			}
		}
		embeddings = out
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("openai: generate embeddings: %w", err)
	}
	return embeddings, nil
}

// ModelName returns the embedding model name.
func (e *Embedder) ModelName() string { return e.model }

// Dimension returns the fixed vector width D this embedder produces.
func (e *Embedder) Dimension() int { return e.dimension }

// MaxBatchSize returns the OpenAI embeddings API's per-call item limit.
func (e *Embedder) MaxBatchSize() int { return 100 }

// Metadata returns the bound model name and dimension.
func (e *Embedder) Metadata() Metadata {
	return Metadata{ModelName: e.model, Dimension: e.dimension}
}

var _ ingest.Embedder = (*Embedder)(nil)
