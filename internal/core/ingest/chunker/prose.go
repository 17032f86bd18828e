package chunker

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// ProseSplitConfig bounds the token-window prose/config splitter. Defaults
// match spec.md exactly: 512-token windows, 50-token overlap.
type ProseSplitConfig struct {
	WindowTokens  int
	OverlapTokens int
}

// DefaultProseSplitConfig returns the prose splitter's tuning.
func DefaultProseSplitConfig() ProseSplitConfig {
	return ProseSplitConfig{WindowTokens: 512, OverlapTokens: 50}
}

// ProseSplit is one token-windowed slice of a prose/config file. Line
// numbers are approximate (prose files are windowed by token, not line,
// so StartLine/EndLine are derived from the window's byte offsets).
type ProseSplit struct {
	Content   string
	StartLine int
	EndLine   int
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoder() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})
	return enc, encErr
}

// CountTokens returns the cl100k_base token count of text, falling back to
// a conservative chars/4 estimate if the encoder fails to load (e.g. no
// network access to fetch its vocab file in an offline environment).
func CountTokens(text string) int {
	e, err := encoder()
	if err != nil {
		return len(text)/4 + 1
	}
	return len(e.Encode(text, nil, nil))
}

// SplitProse windows text into overlapping token ranges using the real
// cl100k_base tokenizer (matching the tokenizer the embedding model itself
// uses), rather than a word- or byte-count approximation.
func SplitProse(text string, cfg ProseSplitConfig) []ProseSplit {
	if cfg.WindowTokens <= 0 {
		cfg.WindowTokens = 512
	}
	if cfg.OverlapTokens < 0 || cfg.OverlapTokens >= cfg.WindowTokens {
		cfg.OverlapTokens = 50
	}

	e, err := encoder()
	if err != nil {
		return splitProseByChars(text, cfg)
	}

	tokens := e.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	step := cfg.WindowTokens - cfg.OverlapTokens
	lineOffsets := buildLineOffsets(text)

	var splits []ProseSplit
	for start := 0; start < len(tokens); start += step {
		end := start + cfg.WindowTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		content := e.Decode(tokens[start:end])
		startLine, endLine := approximateLineRange(text, content, lineOffsets)
		splits = append(splits, ProseSplit{Content: content, StartLine: startLine, EndLine: endLine})

		if end >= len(tokens) {
			break
		}
	}
	return splits
}

// splitProseByChars is the degraded-mode splitter used only when the
// tokenizer vocab could not be loaded; it approximates the same window
// sizes using a chars/4-per-token estimate.
func splitProseByChars(text string, cfg ProseSplitConfig) []ProseSplit {
	windowChars := cfg.WindowTokens * 4
	overlapChars := cfg.OverlapTokens * 4
	if windowChars <= 0 {
		return nil
	}
	step := windowChars - overlapChars
	if step <= 0 {
		step = windowChars
	}

	runes := []rune(text)
	lineOffsets := buildLineOffsets(text)

	var splits []ProseSplit
	for start := 0; start < len(runes); start += step {
		end := start + windowChars
		if end > len(runes) {
			end = len(runes)
		}
		content := string(runes[start:end])
		startLine, endLine := approximateLineRange(text, content, lineOffsets)
		splits = append(splits, ProseSplit{Content: content, StartLine: startLine, EndLine: endLine})
		if end >= len(runes) {
			break
		}
	}
	return splits
}

func buildLineOffsets(text string) []int {
	offsets := []int{0}
	for i, r := range text {
		if r == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// approximateLineRange locates content's first occurrence in text and
// converts its byte offsets into 1-indexed line numbers. Token-window
// splits don't align to line boundaries, so this is a best-effort estimate
// for display/debugging, not an exact source mapping.
func approximateLineRange(text, content string, lineOffsets []int) (int, int) {
	idx := strings.Index(text, content)
	if idx < 0 {
		return 1, 1
	}
	startLine := lineForOffset(idx, lineOffsets)
	endLine := lineForOffset(idx+len(content), lineOffsets)
	return startLine, endLine
}

func lineForOffset(offset int, lineOffsets []int) int {
	line := 1
	for _, o := range lineOffsets {
		if o <= offset {
			line++
		} else {
			break
		}
	}
	return line - 1
}
