// Package classify infers season/episode numbers from free-text channel
// titles and folds episodic channels into derived series.
package classify

import (
	"sort"
	"strconv"
	"strings"

	"github.com/streamdex/streamdex/internal/catalog"
)

// Resolve extracts a season/episode pair from a title using the ordered rule
// table, first-match-wins. Every candidate match is bounds-checked; a match
// outside bounds is rejected and extraction falls through to the next rule.
func Resolve(name string) (season, episode int, ok bool) {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		season = 1
		if r.seasonGroup > 0 {
			season = atoiOrZero(m[r.seasonGroup])
		}
		episode = atoiOrZero(m[r.episodeGroup])
		if season < minSeason || season > maxSeason {
			continue
		}
		if episode < minEpisode || episode > maxEpisode {
			continue
		}
		return season, episode, true
	}
	return 0, 0, false
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Annotate returns a copy of channels with season/episode filled in from the
// title where possible. Channels that already carry explicit values are kept
// untouched; annotation never overwrites.
func Annotate(channels []catalog.Channel) []catalog.Channel {
	out := make([]catalog.Channel, len(channels))
	copy(out, channels)
	for i := range out {
		if out[i].Episodic() {
			continue
		}
		if s, e, ok := Resolve(out[i].Name); ok {
			out[i].Season = s
			out[i].Episode = e
		}
	}
	return out
}

// BaseName strips every token the rule table recognizes (including the
// inline subtitle tag) from a title, collapses whitespace, and trims. The
// result is the series grouping key before case/diacritic folding.
func BaseName(name string) string {
	s := name
	for _, re := range stripPatterns {
		s = re.ReplaceAllString(s, " ")
	}
	return strings.Join(strings.Fields(s), " ")
}

// Group folds channels into series keyed by the normalized base name.
// A channel joins a series when it has a resolved season/episode, explicit
// or inferred; everything else is standalone. The first channel of a key
// fixes the series name, group, and thumbnail. Feeding the output back
// through Group reproduces the same result because annotated channels skip
// pattern matching entirely.
func Group(channels []catalog.Channel) catalog.GroupResult {
	var res catalog.GroupResult
	byKey := map[string]*catalog.Series{}
	var order []string

	for _, ch := range channels {
		season, episode := ch.Season, ch.Episode
		if !ch.Episodic() {
			s, e, ok := Resolve(ch.Name)
			if !ok {
				res.Standalone = append(res.Standalone, ch)
				continue
			}
			season, episode = s, e
		}

		base := BaseName(ch.Name)
		key := catalog.NormalizeText(base)
		sr, exists := byKey[key]
		if !exists {
			sr = &catalog.Series{
				ID:        catalog.SeriesID(key),
				Name:      base,
				Group:     ch.Group,
				Thumbnail: ch.Logo,
			}
			byKey[key] = sr
			order = append(order, key)
		}

		ep := ch // annotation on a copy; the stored channel is untouched
		ep.Season = season
		ep.Episode = episode
		appendEpisode(sr, season, ep)
	}

	res.Series = make([]catalog.Series, 0, len(order))
	for _, key := range order {
		sr := byKey[key]
		sort.Slice(sr.Seasons, func(i, j int) bool {
			return sr.Seasons[i].Number < sr.Seasons[j].Number
		})
		for i := range sr.Seasons {
			eps := sr.Seasons[i].Episodes
			sort.SliceStable(eps, func(a, b int) bool {
				return eps[a].Episode < eps[b].Episode
			})
		}
		res.Series = append(res.Series, *sr)
	}
	return res
}

func appendEpisode(sr *catalog.Series, season int, ep catalog.Channel) {
	for i := range sr.Seasons {
		if sr.Seasons[i].Number == season {
			sr.Seasons[i].Episodes = append(sr.Seasons[i].Episodes, ep)
			return
		}
	}
	sr.Seasons = append(sr.Seasons, catalog.Season{Number: season, Episodes: []catalog.Channel{ep}})
}
