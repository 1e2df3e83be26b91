package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents decomposes characters and drops combining marks, so that
// "garantía" and "garantia" compare equal.
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases text, strips diacritics and collapses all whitespace
// runs to single spaces. Comparison happens on normalized text while the
// report keeps the original words.
func Normalize(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Words splits text into whitespace-separated words, original casing kept.
func Words(s string) []string {
	return strings.Fields(s)
}
