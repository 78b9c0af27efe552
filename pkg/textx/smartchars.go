package textx

import "strings"

// smartCharacters maps typographic punctuation and symbols to ASCII.
// No replacement value may contain a key of this table: the replacement is
// applied in a single pass and must not depend on iteration order.
var smartCharacters = map[rune]string{
	'\u2019': "'", // right single quotation mark
	'\u2018': "'", // left single quotation mark
	'\u201A': "'", // single low-9 quotation mark
	'\u201C': `"`, // left double quotation mark
	'\u201D': `"`, // right double quotation mark
	'\u201E': `"`, // double low-9 quotation mark

	'\u2013': "-",  // en dash
	'\u2014': "--", // em dash
	'\u2015': "--", // horizontal bar

	'\u2026': "...", // horizontal ellipsis

	'\u2022': "*", // bullet
	'\u00B0': " degrees ",
	'\u2122': "TM",
	'\u00AE': "(R)",
	'\u00A9': "(C)",
	'\u00D7': "x",
	'\u00F7': "/",

	'\u00A0': " ", // no-break space
	'\u2009': " ", // thin space
	'\u200A': " ", // hair space
	'\u200B': "",  // zero-width space
	'\u2028': "\n", // line separator
	'\u2029': "\n", // paragraph separator
}

// ReplaceSmartCharacters replaces smart quotes, dashes and other typographic
// symbols with their ASCII equivalents. Characters not in the table are
// left untouched.
func ReplaceSmartCharacters(s string) string {
	return replaceRunes(s, smartCharacters)
}

// replaceRunes rewrites every rune found in table and copies the rest.
func replaceRunes(s string, table map[rune]string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := table[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
