package textx

import (
	"errors"
	"strings"
)

// ErrEmptyResult is returned by SanitizeForTTS when nothing speakable is
// left after sanitization, for example when the input consisted only of
// zero-width or control characters.
var ErrEmptyResult = errors.New("text is empty after sanitization")

// SanitizeForTTS prepares a spoken script for the synthesis provider.
// Paragraph breaks are kept as pause hints. Empty input yields an empty
// string; input that sanitizes to nothing yields ErrEmptyResult.
func SanitizeForTTS(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	out := NormalizeLineBreaks(s)
	out = SanitizeNonASCII(out)
	out = CleanWhitespace(out)
	// Deleted characters and line separators can leave new blank lines
	// behind; settle them so the output is a fixed point.
	out = NormalizeLineBreaks(out)
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResult
	}
	return out, nil
}

// SanitizePrompt prepares voice-direction text. The result is a single
// line; an empty result is valid because instructions are optional.
func SanitizePrompt(s string) string {
	if s == "" {
		return ""
	}
	out := SanitizeNonASCII(s)
	out = flatten(out)
	return CleanWhitespace(out)
}

func flatten(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}
