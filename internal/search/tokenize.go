package search

import (
	"strings"

	"github.com/streamdex/streamdex/internal/catalog"
)

// stopWords are dropped from queries: high-frequency articles, prepositions,
// and conjunctions (Portuguese and English) that carry no ranking signal.
var stopWords = map[string]bool{
	"o": true, "a": true, "os": true, "as": true,
	"um": true, "uma": true, "uns": true, "umas": true,
	"de": true, "do": true, "da": true, "dos": true, "das": true,
	"em": true, "no": true, "na": true, "nos": true, "nas": true,
	"por": true, "pelo": true, "pela": true, "pelos": true, "pelas": true,
	"com": true, "para": true, "e": true, "ou": true, "que": true, "se": true,
	"the": true, "of": true, "and": true, "to": true, "in": true,
	"is": true, "it": true,
}

// Tokenize lowercases, strips diacritics, splits on whitespace, and drops
// single-character tokens and stop words. An all-stop-word query tokenizes
// to nil, which searches treat as "no results", not an error.
func Tokenize(query string) []string {
	var out []string
	for _, w := range strings.Fields(catalog.NormalizeText(query)) {
		if len(w) <= 1 || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// normalizePhrase collapses internal whitespace of the normalized query so
// phrase matching is insensitive to spacing.
func normalizePhrase(query string) string {
	return strings.Join(strings.Fields(catalog.NormalizeText(query)), " ")
}

// isWordChar mirrors the token alphabet: letters and digits bound words,
// everything else separates them.
func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z'
}

// wordBoundaryMatch reports whether tok occurs in name with non-word
// characters (or string edges) on both sides.
func wordBoundaryMatch(name, tok string) bool {
	for from := 0; ; {
		i := strings.Index(name[from:], tok)
		if i < 0 {
			return false
		}
		i += from
		startOK := i == 0 || !isWordChar(name[i-1])
		end := i + len(tok)
		endOK := end == len(name) || !isWordChar(name[end])
		if startOK && endOK {
			return true
		}
		from = i + 1
	}
}
