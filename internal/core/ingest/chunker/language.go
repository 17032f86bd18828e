// Package chunker splits file content into Chunks, routing by detected
// language/content type to a code-aware, markdown-aware or prose splitter.
package chunker

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Kind is the coarse splitting strategy Parse picks per file.
type Kind int

const (
	KindCode Kind = iota
	KindMarkdown
	KindConfig
	KindText
	KindBinary
)

// configExtensions are the structured-config-like extensions that get
// ChunkTypeConfig rather than the generic ChunkTypeText, even though both
// share the same prose splitter.
var configExtensions = map[string]bool{
	".yaml": true, ".yml": true, ".toml": true,
	".json": true, ".ini": true, ".cfg": true, ".conf": true, ".env": true,
}

// Classify inspects a file's extension and (when the extension alone is
// ambiguous) its content via go-enry's language detector to decide which
// splitter, and which chunk type, handles it.
func Classify(path string, content []byte) Kind {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case ext == ".md" || ext == ".markdown":
		return KindMarkdown
	case configExtensions[ext]:
		return KindConfig
	}

	if enry.IsBinary(content) {
		return KindBinary
	}

	if ext != "" {
		if lang, ok := enry.GetLanguageByExtension(path); ok && enry.GetLanguageType(lang) == enry.Programming {
			return KindCode
		}
	}

	lang := enry.GetLanguage(path, content)
	if lang != "" && enry.GetLanguageType(lang) == enry.Programming {
		return KindCode
	}

	return KindText
}

// IsLikelyBinary applies the spec's cheap binary heuristic: a NUL byte
// anywhere in the first 8KB marks the file as binary, skipping parsing
// entirely rather than attempting text decoding on it.
func IsLikelyBinary(content []byte) bool {
	probe := content
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return false
}
