package textx

import (
	"regexp"
	"strings"
)

var (
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
	lineLeading    = regexp.MustCompile(`(?m)^ +`)
	lineTrailing   = regexp.MustCompile(`(?m) +$`)
)

// CleanWhitespace collapses runs of spaces and tabs into one space, strips
// spaces at both ends of every line and trims the whole string. Newlines
// inside the text are preserved.
func CleanWhitespace(s string) string {
	s = horizontalRuns.ReplaceAllString(s, " ")
	s = lineLeading.ReplaceAllString(s, "")
	s = lineTrailing.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
