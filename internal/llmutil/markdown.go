// internal/llmutil/markdown.go
package llmutil

import (
	"regexp"
	"strings"
)

const fence = "\x60\x60\x60"

var (
	// wrappedRegex matches a reply that is one fenced block, e.g. ```markdown ... ```.
	// \x60 is a backtick; Go raw strings cannot contain one.
	wrappedRegex = regexp.MustCompile("(?s)^\x60\x60\x60[a-zA-Z]*[ \\t]*\\n(.*?)\\n?\x60\x60\x60$")
	// blankRunRegex matches three or more consecutive newlines.
	blankRunRegex = regexp.MustCompile(`\n{3,}`)
)

// Unfence removes a code fence that wraps the whole reply. Replies that merely
// contain code blocks are returned unchanged.
func Unfence(s string) string {
	s = strings.TrimSpace(s)
	if strings.Count(s, fence) != 2 {
		return s
	}
	if m := wrappedRegex.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// NormalizeNewlines converts CRLF line endings and collapses runs of blank lines
// to a single blank line.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return blankRunRegex.ReplaceAllString(s, "\n\n")
}

// CleanMarkdown prepares model prose for storage and display.
func CleanMarkdown(s string) string {
	return Unfence(NormalizeNewlines(s))
}
