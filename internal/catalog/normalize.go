package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticFold decomposes to NFD, drops combining marks, recomposes.
var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText lowercases, strips diacritics, and trims. Used for series
// grouping keys and search tokenization so "Épisode" and "episode" compare
// equal.
func NormalizeText(s string) string {
	folded, _, err := transform.String(diacriticFold, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
