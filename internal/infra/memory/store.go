// Package memory provides an in-process Storage implementation used as the
// default adapter for throwaway/dev indexing runs and as the storage
// fixture for the unit tests of the stages that touch storage
// (IncrementalFilter, Persist, FileSummary).
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

// Store is a sync.RWMutex-guarded map-of-maps implementing the full
// ingest.Storage port. Not durable across process restarts; intended for
// `index scan`/`index watch` against a throwaway index and for tests.
type Store struct {
	mu        sync.RWMutex
	chunks    map[string][]*ingest.Chunk // keyed by file path
	summaries map[string]*ingest.FileSummary
	dimension int
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		chunks:    make(map[string][]*ingest.Chunk),
		summaries: make(map[string]*ingest.FileSummary),
	}
}

func (s *Store) SaveChunks(ctx context.Context, filePath string, chunks []*ingest.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]*ingest.Chunk, len(chunks))
	copy(cp, chunks)
	s.chunks[filePath] = cp

	if s.dimension == 0 {
		for _, c := range chunks {
			if len(c.Embedding) > 0 {
				s.dimension = len(c.Embedding)
				break
			}
		}
	}
	return nil
}

func (s *Store) DeleteChunksByFilePaths(ctx context.Context, filePaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range filePaths {
		delete(s.chunks, p)
	}
	return nil
}

func (s *Store) SaveFileSummary(ctx context.Context, summary *ingest.FileSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *summary
	s.summaries[summary.FilePath] = &cp
	return nil
}

func (s *Store) GetFilesMetadata(ctx context.Context, filePaths []string) (map[string]ingest.FileMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]ingest.FileMetadata, len(filePaths))
	for _, p := range filePaths {
		summary, ok := s.summaries[p]
		if !ok {
			continue
		}
		result[p] = ingest.FileMetadata{
			ModTime:  summary.Metadata.ModTime,
			Checksum: summary.Metadata.Checksum,
			Size:     summary.Metadata.Size,
		}
	}
	return result, nil
}

func (s *Store) SearchVector(ctx context.Context, embedding []float32, topK int) ([]*ingest.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk *ingest.Chunk
		dist  float64
	}
	var candidates []scored
	for _, chunks := range s.chunks {
		for _, c := range chunks {
			if len(c.Embedding) == 0 {
				continue
			}
			candidates = append(candidates, scored{chunk: c, dist: cosineDistance(embedding, c.Embedding)})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	if topK > len(candidates) {
		topK = len(candidates)
	}
	result := make([]*ingest.Chunk, topK)
	for i := 0; i < topK; i++ {
		result[i] = candidates[i].chunk
	}
	return result, nil
}

func (s *Store) GetEmbeddingDimension(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension, nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.MaxFloat64
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return math.MaxFloat64
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

var _ ingest.Storage = (*Store)(nil)
