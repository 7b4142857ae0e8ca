// transliterate.go — ASCII folding for mail header text.
package delivery

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// substitutions covers letters that do not decompose into base + mark.
// Lithuanian letters are listed explicitly so they never depend on
// normalization.
var substitutions = map[rune]string{
	'ą': "a", 'Ą': "A",
	'č': "c", 'Č': "C",
	'ę': "e", 'Ę': "E",
	'ė': "e", 'Ė': "E",
	'į': "i", 'Į': "I",
	'š': "s", 'Š': "S",
	'ų': "u", 'Ų': "U",
	'ū': "u", 'Ū': "U",
	'ž': "z", 'Ž': "Z",
	'ß': "ss",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'ø': "o", 'Ø': "O",
	'ł': "l", 'Ł': "L",
	'đ': "d", 'Đ': "D",
	'ð': "d", 'Ð': "D",
	'þ': "th", 'Þ': "TH",
	'ı': "i",
	'‘': "'", '’': "'",
	'“': `"`, '”': `"`, '„': `"`,
	'–': "-", '—': "-",
	'…':      "...",
	'\u00a0': " ",
}

// Transliterate folds s into printable ASCII: fixed substitutions first,
// then combining marks are stripped, then anything left becomes '?'.
func Transliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		if rep, ok := substitutions[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, b.String())
	if err != nil {
		folded = b.String()
	}

	return strings.Map(func(r rune) rune {
		if r >= 0x20 && r <= 0x7e {
			return r
		}
		return '?'
	}, folded)
}
