package textx

import "strings"

// accents transliterates the common Western and Central European accented
// Latin letters.
var accents = map[rune]string{
	'à': "a", 'á': "a", 'ä': "a", 'â': "a", 'ã': "a", 'å': "a", 'ā': "a",
	'è': "e", 'é': "e", 'ë': "e", 'ê': "e", 'ē': "e", 'ė': "e", 'ę': "e",
	'ì': "i", 'í': "i", 'ï': "i", 'î': "i", 'ī': "i", 'į': "i",
	'ò': "o", 'ó': "o", 'ö': "o", 'ô': "o", 'õ': "o", 'ō': "o",
	'ù': "u", 'ú': "u", 'ü': "u", 'û': "u", 'ū': "u",
	'ñ': "n", 'ň': "n", 'ń': "n",
	'ç': "c", 'č': "c", 'ć': "c",
	'ž': "z", 'ź': "z", 'ż': "z",
	'š': "s", 'ś': "s",
	'ÿ': "y", 'ý': "y",

	'À': "A", 'Á': "A", 'Ä': "A", 'Â': "A", 'Ã': "A", 'Å': "A", 'Ā': "A",
	'È': "E", 'É': "E", 'Ë': "E", 'Ê': "E", 'Ē': "E",
	'Ì': "I", 'Í': "I", 'Ï': "I", 'Î': "I", 'Ī': "I",
	'Ò': "O", 'Ó': "O", 'Ö': "O", 'Ô': "O", 'Õ': "O", 'Ō': "O",
	'Ù': "U", 'Ú': "U", 'Ü': "U", 'Û': "U", 'Ū': "U",
	'Ñ': "N", 'Ň': "N", 'Ń': "N",
	'Ç': "C", 'Č': "C", 'Ć': "C",
	'Ž': "Z", 'Ź': "Z", 'Ż': "Z",
	'Š': "S", 'Ś': "S",
	'Ÿ': "Y", 'Ý': "Y",
}

// SanitizeNonASCII replaces smart characters and accented letters with
// ASCII and then deletes everything else outside the ASCII range, together
// with control characters other than tab, LF and CR.
//
// Deletion is silent: "Test 你好 test" becomes "Test  test".
func SanitizeNonASCII(s string) string {
	s = ReplaceSmartCharacters(s)
	s = replaceRunes(s, accents)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20 || r == 0x7F:
			return -1
		case r > 0x7F:
			return -1
		}
		return r
	}, s)
}
