package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokensNonEmpty(t *testing.T) {
	n := CountTokens("hello world, this is a test sentence")
	assert.Greater(t, n, 0)
}

func TestSplitProseWindowsOverlap(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	splits := SplitProse(text, DefaultProseSplitConfig())
	require.NotEmpty(t, splits)

	for _, s := range splits {
		assert.NotEmpty(t, s.Content)
	}
}

func TestSplitProseEmptyInput(t *testing.T) {
	splits := SplitProse("", DefaultProseSplitConfig())
	assert.Empty(t, splits)
}

func TestSplitProseShortInputSingleWindow(t *testing.T) {
	splits := SplitProse("a short piece of text", DefaultProseSplitConfig())
	require.Len(t, splits, 1)
}
