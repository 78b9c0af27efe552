package textx

import (
	"regexp"
	"strings"
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// NormalizeLineBreaks converts CRLF and CR to LF, allows at most one blank
// line between paragraphs and trims every line. A blank line is kept only
// when it is neither the first nor the last line and follows a non-blank
// line, so "a\n\n" keeps one trailing line break while leading blank lines
// are dropped.
func NormalizeLineBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if line == "" && (i == 0 || i == len(lines)-1 || lines[i-1] == "") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
