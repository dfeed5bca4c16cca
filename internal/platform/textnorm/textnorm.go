// Package textnorm folds the spelling noise feeds introduce into names:
// accents, case, punctuation inside abbreviations and runs of whitespace.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Clean trims and collapses whitespace but keeps the original spelling.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key returns the matching key for a name: accent-folded, lower-cased, with
// dots and apostrophes dropped ("F.C." -> "fc", "St. Louis" -> "st louis") and
// every other non-alphanumeric rune treated as a word break.
func Key(s string) string {
	folded := fold(s)

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == '.' || r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
