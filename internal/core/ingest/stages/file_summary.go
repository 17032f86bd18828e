package stages

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

// FileSummary is the terminal stage: it stats and checksums the file one
// more time (the checksum here is authoritative — IncrementalFilter's
// mtime comparison is a cheap heuristic, this is what actually gets
// persisted) and writes the single FileSummary row.
//
// MD5 is a change detector here, not a security hash: spec.md is explicit
// that chunk content is already trusted local workspace data, so there is
// no collision-resistance requirement that would warrant SHA-256 or a
// third-party hashing library.
type FileSummary struct {
	storage ingest.Storage
}

func NewFileSummary(storage ingest.Storage) *FileSummary {
	return &FileSummary{storage: storage}
}

func (s *FileSummary) Name() string { return "file_summary" }

func (s *FileSummary) Process(ctx context.Context, fc *ingest.FileContext) (*ingest.FileContext, error) {
	if fc.EventType == ingest.EventDelete {
		// The file is gone; Persist already cleared its chunk rows. There
		// is nothing left to summarize, and no-op is correct here rather
		// than writing a summary row for a file that no longer exists.
		return fc, nil
	}

	info, err := os.Stat(fc.AbsPath)
	if os.IsNotExist(err) {
		// Vanished between Parse and here (e.g. edited then immediately
		// deleted); nothing to summarize.
		return fc, nil
	}
	if err != nil {
		fc.AddError(fmt.Errorf("file_summary: stat %s: %w", fc.AbsPath, err))
		return fc, err
	}

	checksum, err := checksumFile(fc.AbsPath)
	if err != nil {
		fc.AddError(fmt.Errorf("file_summary: checksum %s: %w", fc.AbsPath, err))
		return fc, err
	}
	fc.Checksum = checksum

	summary := ingest.FileSummary{
		FilePath: fc.FilePath,
		Summary:  summaryText(fc),
		Metadata: ingest.FileSummaryMetadata{
			ModTime:  info.ModTime(),
			Checksum: checksum,
			Size:     info.Size(),
			Valid:    !fc.HasErrors(),
		},
	}
	if fc.HasErrors() {
		summary.Metadata.InvalidReason = errors.Join(fc.Errors...).Error()
		summary.Metadata.InvalidTimestamp = time.Now()
	}

	if err := s.storage.SaveFileSummary(ctx, &summary); err != nil {
		fc.AddError(fmt.Errorf("file_summary: save %s: %w", fc.FilePath, err))
		return fc, err
	}

	fc.Status = ingest.StatusPersisted
	return fc, nil
}

func summaryText(fc *ingest.FileContext) string {
	if len(fc.Chunks) == 0 {
		return ""
	}
	for _, c := range fc.Chunks {
		if c.Summary != nil && *c.Summary != "" {
			return *c.Summary
		}
	}
	return ""
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var _ ingest.Stage = (*FileSummary)(nil)
