package chunker

import "strings"

// CodeSplit is one line-windowed slice of a source file.
type CodeSplit struct {
	Content   string
	StartLine int // 1-indexed, inclusive
	EndLine   int // 1-indexed, inclusive
}

// CodeSplitConfig bounds a line-window code splitter. Defaults
// (DefaultCodeSplitConfig) match spec.md's .py splitter exactly: 40
// lines/chunk, 15 lines of overlap, capped at 1500 characters.
type CodeSplitConfig struct {
	LinesPerChunk int
	OverlapLines  int
	MaxChars      int
}

// DefaultCodeSplitConfig returns the code-aware splitter's tuning.
func DefaultCodeSplitConfig() CodeSplitConfig {
	return CodeSplitConfig{LinesPerChunk: 40, OverlapLines: 15, MaxChars: 1500}
}

// SplitCode windows text into overlapping line ranges. Each window starts
// OverlapLines before the previous window's end (except the first), and is
// additionally hard-truncated to MaxChars if the line window alone would
// exceed it — a long single line (e.g. a minified blob) cannot blow the
// character budget for the whole chunk.
func SplitCode(text string, cfg CodeSplitConfig) []CodeSplit {
	if cfg.LinesPerChunk <= 0 {
		cfg.LinesPerChunk = 40
	}
	if cfg.OverlapLines < 0 || cfg.OverlapLines >= cfg.LinesPerChunk {
		cfg.OverlapLines = cfg.LinesPerChunk / 3
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 1500
	}

	lines := strings.Split(text, "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}

	step := cfg.LinesPerChunk - cfg.OverlapLines
	var splits []CodeSplit

	for start := 0; start < len(lines); start += step {
		end := start + cfg.LinesPerChunk
		if end > len(lines) {
			end = len(lines)
		}

		chunkLines := lines[start:end]
		content := strings.Join(chunkLines, "\n")
		if len(content) > cfg.MaxChars {
			content = truncateRunes(content, cfg.MaxChars)
		}

		splits = append(splits, CodeSplit{
			Content:   content,
			StartLine: start + 1,
			EndLine:   end,
		})

		if end >= len(lines) {
			break
		}
	}

	return splits
}

func truncateRunes(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars])
}
