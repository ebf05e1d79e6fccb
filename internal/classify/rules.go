package classify

import "regexp"

// Season/episode bounds. Matches outside these are rejected and extraction
// falls through to the next rule; plain numeric titles ("Studio 200") must
// not be misread as episodes.
const (
	minSeason  = 1
	maxSeason  = 99
	minEpisode = 1
	maxEpisode = 999
)

// rule is one entry in the ordered extraction table. seasonGroup is the
// regexp submatch index holding the season number, or 0 when the pattern
// carries no season (season 1 is assumed). episodeGroup always points at the
// episode number.
type rule struct {
	re           *regexp.Regexp
	seasonGroup  int
	episodeGroup int
}

// rules is evaluated first-match-wins. Two-number forms come first;
// season-less single-number forms are only tried after all of them fail.
var rules = []rule{
	{regexp.MustCompile(`(?i)\bS(\d+)[\s._-]*E(\d+)`), 1, 2},             // S01E01, S01 E01
	{regexp.MustCompile(`(?i)\bS(\d+)[\s._-]*EP(\d+)`), 1, 2},            // S01EP01
	{regexp.MustCompile(`(?i)\b(\d+)x(\d+)\b`), 1, 2},                    // 1x01
	{regexp.MustCompile(`(?i)Season\s*(\d+)\s*Episode\s*(\d+)`), 1, 2},   // Season 1 Episode 1
	{regexp.MustCompile(`(?i)\bT(\d+)[\s._-]*E(\d+)`), 1, 2},             // T01E01
	{regexp.MustCompile(`(?i)Temporada\s*(\d+).*?Epis[oó]dio\s*(\d+)`), 1, 2},
	{regexp.MustCompile(`(?i)Epis[oó]dio\s*(\d+)`), 0, 1},                // Episodio 3
	{regexp.MustCompile(`(?i)\bEP\s*(\d+)\b`), 0, 1},                     // EP03
	{regexp.MustCompile(`(?i)-\s*E[P]?\s*(\d+)\b`), 0, 1},                // - E3, - EP 3
	{regexp.MustCompile(`(?i)\bE(\d+)\b`), 0, 1},                         // bare E03
}

// stripPatterns removes every token the rule table recognizes, plus the
// inline subtitle tag, when deriving a series base name.
var stripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*\[L\]\s*`),
	regexp.MustCompile(`(?i)\s*Temporada\s*\d+\s*`),
	regexp.MustCompile(`(?i)\s*Season\s*\d+\s*Episode\s*\d+\s*`),
	regexp.MustCompile(`(?i)\s*S\d+[\s._-]*EP?\d+\s*`),
	regexp.MustCompile(`(?i)\s*T\d+[\s._-]*E\d+\s*`),
	regexp.MustCompile(`(?i)\s*\b\d+x\d+\b\s*`),
	regexp.MustCompile(`(?i)\s*-?\s*Epis[oó]dio\s*\d+\s*`),
	regexp.MustCompile(`(?i)\s*-?\s*EP\s*\d+\b\s*`),
	regexp.MustCompile(`(?i)\s*-\s*E\s*\d+\b\s*`),
	regexp.MustCompile(`(?i)\s*\bE\d+\b\s*`),
}
