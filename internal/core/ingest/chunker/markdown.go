package chunker

import (
	"regexp"
	"strings"
)

var headingPattern = regexp.MustCompile(`^#{1,6}\s+\S`)

// MarkdownSplit is one heading-bounded section of a markdown file.
type MarkdownSplit struct {
	Content   string
	StartLine int
	EndLine   int
}

// SplitMarkdown breaks a markdown document on heading boundaries (any line
// matching ATX heading syntax, # through ######), while never splitting in
// the middle of a fenced code block. A document with no headings at all
// becomes a single section.
func SplitMarkdown(text string) []MarkdownSplit {
	lines := strings.Split(text, "\n")
	var splits []MarkdownSplit
	var current []string
	startLine := 1
	inFence := false

	flush := func(endLine int) {
		if len(current) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(current, "\n"), "\n")
		if strings.TrimSpace(content) != "" {
			splits = append(splits, MarkdownSplit{
				Content:   content,
				StartLine: startLine,
				EndLine:   endLine,
			})
		}
		current = nil
	}

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}

		if !inFence && headingPattern.MatchString(line) && len(current) > 0 {
			flush(lineNo - 1)
			startLine = lineNo
		}

		current = append(current, line)
	}
	flush(len(lines))

	return splits
}
