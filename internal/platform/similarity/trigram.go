// Package similarity computes the trigram similarity used by pg_trgm so the
// in-memory store and Postgres agree on match scores.
package similarity

import (
	"strings"
	"unicode"
)

// Trigram returns |A∩B| / |A∪B| over the padded word trigrams of a and b,
// the same definition as pg_trgm's similarity().
func Trigram(a, b string) float64 {
	ta := Trigrams(a)
	tb := Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			common++
		}
	}

	return float64(common) / float64(len(ta)+len(tb)-common)
}

// Trigrams splits s into lower-cased alphanumeric words, pads each word with two
// leading blanks and one trailing blank, and returns the distinct 3-rune windows.
func Trigrams(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range words(s) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			out[string(padded[i:i+3])] = struct{}{}
		}
	}
	return out
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
