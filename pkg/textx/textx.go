// Package textx prepares user supplied text for speech synthesis.
//
// The script pipeline (SanitizeForTTS) keeps paragraph breaks because the
// synthesis provider treats them as pauses. The prompt pipeline
// (SanitizePrompt) flattens voice-direction text to a single line. Both
// produce printable ASCII. ValidateTextLength bounds the result for the
// provider's input limit.
//
// Every function in this package is pure and safe for concurrent use.
package textx

import (
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
// It is used for short metadata fields such as clip and category names.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
