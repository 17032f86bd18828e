package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/jinford/workspace-rag/internal/core/ingest"
	"github.com/jinford/workspace-rag/internal/core/ingest/chunker"
)

// Parse reads a file's content and splits it into Chunks, routing on
// detected language/content type to the code, markdown or prose splitter.
// A delete event, a zero-byte file, or a binary file all yield zero
// chunks; Parse still forwards the FileContext downstream in those cases
// (Status skipped for a binary file, parsed for a delete event or a
// zero-byte file) so Persist can perform its delete-only path and
// FileSummary can still record the file's metadata. Whitespace-only chunks
// are dropped before chunk indexes and IDs are assigned.
type Parse struct {
	code     chunker.CodeSplitConfig
	prose    chunker.ProseSplitConfig
	maxBytes int64
}

// NewParse constructs the stage with spec.md's exact splitter tunings.
func NewParse() *Parse {
	return &Parse{
		code:     chunker.DefaultCodeSplitConfig(),
		prose:    chunker.DefaultProseSplitConfig(),
		maxBytes: 10 * 1024 * 1024,
	}
}

func (p *Parse) Name() string { return "parse" }

func (p *Parse) Process(ctx context.Context, fc *ingest.FileContext) (*ingest.FileContext, error) {
	if fc.EventType == ingest.EventDelete {
		fc.Chunks = nil
		fc.Status = ingest.StatusParsed
		return fc, nil
	}

	info, err := os.Stat(fc.AbsPath)
	if err != nil {
		fc.Status = ingest.StatusSkipped
		return fc, fmt.Errorf("parse: stat %s: %w", fc.AbsPath, err)
	}
	if info.Size() > p.maxBytes {
		fc.Status = ingest.StatusSkipped
		return fc, nil
	}
	if info.Size() == 0 {
		fc.Chunks = nil
		fc.Status = ingest.StatusParsed
		return fc, nil
	}

	raw, err := os.ReadFile(fc.AbsPath)
	if err != nil {
		fc.Status = ingest.StatusSkipped
		return fc, fmt.Errorf("parse: read %s: %w", fc.AbsPath, err)
	}

	if chunker.IsLikelyBinary(raw) {
		fc.Chunks = nil
		fc.Status = ingest.StatusSkipped
		return fc, nil
	}

	text, _ := chunker.DecodeText(raw)

	kind := chunker.Classify(fc.FilePath, raw)
	var chunks []*ingest.Chunk
	switch kind {
	case chunker.KindBinary:
		fc.Chunks = nil
		fc.Status = ingest.StatusSkipped
		return fc, nil
	case chunker.KindMarkdown:
		chunks = p.fromMarkdown(fc.FilePath, text)
	case chunker.KindCode:
		chunks = p.fromCode(fc.FilePath, text)
	case chunker.KindConfig:
		chunks = p.fromProse(fc.FilePath, text, ingest.ChunkTypeConfig)
	default:
		chunks = p.fromProse(fc.FilePath, text, ingest.ChunkTypeText)
	}

	kept := make([]*ingest.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		kept = append(kept, newChunk(fc.FilePath, len(kept), c.Content, c.StartLine, c.EndLine, c.Type))
	}

	fc.Chunks = kept
	fc.Status = ingest.StatusParsed
	return fc, nil
}

func (p *Parse) fromCode(filePath, text string) []*ingest.Chunk {
	splits := chunker.SplitCode(text, p.code)
	chunks := make([]*ingest.Chunk, 0, len(splits))
	for i, s := range splits {
		chunks = append(chunks, newChunk(filePath, i, s.Content, s.StartLine, s.EndLine, ingest.ChunkTypeCode))
	}
	return chunks
}

func (p *Parse) fromMarkdown(filePath, text string) []*ingest.Chunk {
	splits := chunker.SplitMarkdown(text)
	chunks := make([]*ingest.Chunk, 0, len(splits))
	for i, s := range splits {
		chunks = append(chunks, newChunk(filePath, i, s.Content, s.StartLine, s.EndLine, ingest.ChunkTypeDoc))
	}
	return chunks
}

func (p *Parse) fromProse(filePath, text string, ct ingest.ChunkType) []*ingest.Chunk {
	splits := chunker.SplitProse(text, p.prose)
	chunks := make([]*ingest.Chunk, 0, len(splits))
	for i, s := range splits {
		chunks = append(chunks, newChunk(filePath, i, s.Content, s.StartLine, s.EndLine, ct))
	}
	return chunks
}

// newChunk computes the deterministic chunk ID spec.md §4.h requires:
// hex(sha256(file_path + "::" + chunk_index))[:16].
func newChunk(filePath string, index int, content string, startLine, endLine int, ct ingest.ChunkType) *ingest.Chunk {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s::%d", filePath, index)))
	id := hex.EncodeToString(sum[:])[:16]
	return &ingest.Chunk{
		ID:        id,
		FilePath:  filePath,
		Index:     index,
		Content:   content,
		StartLine: startLine,
		EndLine:   endLine,
		Type:      ct,
		Metadata:  map[string]string{},
	}
}

var _ ingest.Stage = (*Parse)(nil)
