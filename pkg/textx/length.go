package textx

import "strings"

const ellipsis = "..."

// ValidateTextLength bounds s to maxLength characters, preferring to cut at
// a sentence end in the last 20% of the budget, then at a word boundary in
// the last 10%. Cuts that do not end a sentence get an ellipsis appended,
// so the result may exceed maxLength by up to three characters.
//
// A non-positive maxLength yields an empty string.
func ValidateTextLength(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	truncated := runes[:maxLength]

	sentenceEnd := -1
	space := -1
	for i, r := range truncated {
		switch r {
		case '.', '?', '!':
			sentenceEnd = i
		case ' ':
			space = i
		}
	}

	// integer form of i >= 0.8*max and i >= 0.9*max
	if sentenceEnd >= 0 && sentenceEnd*10 >= maxLength*8 {
		return strings.TrimSpace(string(truncated[:sentenceEnd+1]))
	}
	if space >= 0 && space*10 >= maxLength*9 {
		return strings.TrimSpace(string(truncated[:space])) + ellipsis
	}
	return strings.TrimSpace(string(truncated)) + ellipsis
}
