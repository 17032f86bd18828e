// Package postgres is the pgvector-backed Storage adapter: a pgx/v5 pool
// plus hand-written SQL against a flat chunks/file_summaries schema. No
// code generator is used — the teacher's sqlc-generated Querier targets a
// different schema (products/sources/snapshots) that doesn't apply here.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

// Schema is the DDL this adapter expects to already exist (applied via
// whatever migration tool the deployment uses; this repo ships it as a
// plain SQL string rather than introducing a migration framework the
// teacher pack doesn't otherwise use).
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS file_summaries (
	file_path         TEXT PRIMARY KEY,
	summary           TEXT NOT NULL DEFAULT '',
	mtime             TIMESTAMPTZ NOT NULL,
	checksum          TEXT NOT NULL,
	size              BIGINT NOT NULL,
	valid             BOOLEAN NOT NULL DEFAULT true,
	invalid_reason    TEXT,
	invalid_timestamp TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id   TEXT PRIMARY KEY,
	file_path  TEXT NOT NULL,
	chunk_index INT NOT NULL,
	content    TEXT NOT NULL,
	start_line INT NOT NULL,
	end_line   INT NOT NULL,
	chunk_type TEXT NOT NULL,
	summary    TEXT,
	purpose    TEXT,
	metadata   JSONB,
	embedding  vector
);

CREATE INDEX IF NOT EXISTS chunks_file_path_idx ON chunks (file_path);
`

// Repository is the pgx/v5 + pgvector-go realization of ingest.Storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps an already-connected pool. Callers are responsible
// for applying Schema (or an equivalent migration) before use.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) SaveChunks(ctx context.Context, filePath string, chunks []*ingest.Chunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save chunks: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("postgres: marshal chunk metadata: %w", err)
		}

		var vec *pgvector.Vector
		if len(c.Embedding) > 0 {
			v := pgvector.NewVector(c.Embedding)
			vec = &v
		}

		batch.Queue(`
			INSERT INTO chunks (chunk_id, file_path, chunk_index, content, start_line, end_line, chunk_type, summary, purpose, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (chunk_id) DO UPDATE SET
				content = EXCLUDED.content,
				start_line = EXCLUDED.start_line,
				end_line = EXCLUDED.end_line,
				chunk_type = EXCLUDED.chunk_type,
				summary = EXCLUDED.summary,
				purpose = EXCLUDED.purpose,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding
		`, c.ID, filePath, c.Index, c.Content, c.StartLine, c.EndLine, string(c.Type), c.Summary, c.Purpose, metadata, vec)
	}

	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("postgres: save chunk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: close batch: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *Repository) DeleteChunksByFilePaths(ctx context.Context, filePaths []string) error {
	if len(filePaths) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE file_path = ANY($1)`, filePaths)
	if err != nil {
		return fmt.Errorf("postgres: delete chunks: %w", err)
	}
	return nil
}

func (r *Repository) SaveFileSummary(ctx context.Context, summary *ingest.FileSummary) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO file_summaries (file_path, summary, mtime, checksum, size, valid, invalid_reason, invalid_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (file_path) DO UPDATE SET
			summary = EXCLUDED.summary,
			mtime = EXCLUDED.mtime,
			checksum = EXCLUDED.checksum,
			size = EXCLUDED.size,
			valid = EXCLUDED.valid,
			invalid_reason = EXCLUDED.invalid_reason,
			invalid_timestamp = EXCLUDED.invalid_timestamp
	`, summary.FilePath, summary.Summary, summary.Metadata.ModTime, summary.Metadata.Checksum, summary.Metadata.Size, summary.Metadata.Valid,
		nullableString(summary.Metadata.InvalidReason), nullableTime(summary.Metadata.InvalidTimestamp))
	if err != nil {
		return fmt.Errorf("postgres: save file summary: %w", err)
	}
	return nil
}

func (r *Repository) GetFilesMetadata(ctx context.Context, filePaths []string) (map[string]ingest.FileMetadata, error) {
	if len(filePaths) == 0 {
		return map[string]ingest.FileMetadata{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT file_path, mtime, checksum, size FROM file_summaries WHERE file_path = ANY($1)
	`, filePaths)
	if err != nil {
		return nil, fmt.Errorf("postgres: get files metadata: %w", err)
	}
	defer rows.Close()

	result := make(map[string]ingest.FileMetadata, len(filePaths))
	for rows.Next() {
		var m ingest.FileMetadata
		var path string
		if err := rows.Scan(&path, &m.ModTime, &m.Checksum, &m.Size); err != nil {
			return nil, fmt.Errorf("postgres: scan file metadata: %w", err)
		}
		result[path] = m
	}
	return result, rows.Err()
}

// SearchVector runs a cosine-distance nearest-neighbor search via
// pgvector's <=> operator.
func (r *Repository) SearchVector(ctx context.Context, embedding []float32, topK int) ([]*ingest.Chunk, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx, `
		SELECT chunk_id, file_path, chunk_index, content, start_line, end_line, chunk_type, summary, purpose, metadata
		FROM chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search vector: %w", err)
	}
	defer rows.Close()

	var results []*ingest.Chunk
	for rows.Next() {
		c := &ingest.Chunk{}
		var chunkType string
		var metadataRaw []byte
		if err := rows.Scan(&c.ID, &c.FilePath, &c.Index, &c.Content, &c.StartLine, &c.EndLine, &chunkType, &c.Summary, &c.Purpose, &metadataRaw); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		c.Type = ingest.ChunkType(chunkType)
		if len(metadataRaw) > 0 {
			_ = json.Unmarshal(metadataRaw, &c.Metadata)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// GetEmbeddingDimension reports the width of whatever embedding is already
// stored, via pgvector's vector_dims(). The embedding column is declared as
// a plain, unconstrained vector (no fixed vector(n)) so the schema isn't
// pinned to one embedding model's width; that means the dimension can't be
// read off the column's type modifier and has to come from a stored vector
// instead. Returns 0 before any chunk has been embedded.
func (r *Repository) GetEmbeddingDimension(ctx context.Context) (int, error) {
	var dim int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT vector_dims(embedding) FROM chunks WHERE embedding IS NOT NULL LIMIT 1),
			0)
	`).Scan(&dim)
	if err != nil {
		return 0, fmt.Errorf("postgres: get embedding dimension: %w", err)
	}
	return dim, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ ingest.Storage = (*Repository)(nil)
