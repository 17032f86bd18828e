package ingest

import "context"

// Storage is the persistence port every stage writes through. Two
// realizations ship in this repo: internal/infra/memory (a throwaway
// in-process store) and internal/infra/postgres (pgvector-backed).
type Storage interface {
	// SaveChunks inserts or replaces chunk rows for a single file. Callers
	// are expected to have already deleted any prior rows for the file
	// (Persist does delete-then-insert, never an upsert-in-place).
	SaveChunks(ctx context.Context, filePath string, chunks []*Chunk) error

	// DeleteChunksByFilePaths removes every chunk row belonging to the
	// given files. A no-op for paths with no existing rows.
	DeleteChunksByFilePaths(ctx context.Context, filePaths []string) error

	// SaveFileSummary upserts the single FileSummary row for a file.
	SaveFileSummary(ctx context.Context, summary *FileSummary) error

	// GetFilesMetadata returns the stored FileMetadata for each of the
	// given paths that has a row; paths with no row are simply absent
	// from the result map.
	GetFilesMetadata(ctx context.Context, filePaths []string) (map[string]FileMetadata, error)

	// SearchVector runs a nearest-neighbor search against the embedding
	// column and returns the topK closest chunks.
	SearchVector(ctx context.Context, embedding []float32, topK int) ([]*Chunk, error)

	// GetEmbeddingDimension returns the fixed vector width D the store was
	// provisioned for, or 0 if it has not yet been set (first write wins).
	GetEmbeddingDimension(ctx context.Context) (int, error)
}

// ChatClient abstracts the LLM transport ChunkEnrich uses to produce a
// summary/purpose pair for one chunk's content.
type ChatClient interface {
	SummarizeChunk(ctx context.Context, req ChunkSummaryRequest) (ChunkSummaryResult, error)
}

// ChunkSummaryRequest carries the prompt inputs for a single-chunk LLM call.
type ChunkSummaryRequest struct {
	FilePath string
	Content  string
	Type     ChunkType
}

// ChunkSummaryResult is the tolerant two-line "Summary:"/"Purpose:" parse
// result of a ChunkEnrich LLM call.
type ChunkSummaryResult struct {
	Summary string
	Purpose string
}

// Embedder abstracts the embedding transport the Embed stage uses.
type Embedder interface {
	// BatchEmbed returns one vector per input text, in input order.
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the fixed vector width D this embedder produces.
	Dimension() int
	// MaxBatchSize returns the largest batch this embedder accepts in one
	// call; callers must clip their configured batch size against it.
	MaxBatchSize() int
}
