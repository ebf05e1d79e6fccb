// Package catalog holds the shared data model for parsed playlists, derived
// series groupings, and the result shapes returned to API consumers.
package catalog

import (
	"regexp"
	"sort"
	"strings"
)

// Channel is one playlist entry. Name is the raw display title from the
// playlist directive and doubles as the classifier's input. Season/Episode
// are optional; once set they are authoritative and never re-inferred.
type Channel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Logo    string `json:"logo,omitempty"`
	Group   string `json:"group"`
	EPG     string `json:"epg,omitempty"`
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
}

// Episodic reports whether the channel carries a resolved season/episode pair.
func (c Channel) Episodic() bool {
	return c.Season > 0 && c.Episode > 0
}

// Series is a derived grouping of episodic channels sharing a base title.
// It is recomputed from the channel set on demand and never persisted.
type Series struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Group     string   `json:"group"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Seasons   []Season `json:"seasons"`
}

// Season holds one season's episodes, ordered ascending by episode number.
type Season struct {
	Number   int       `json:"number"`
	Episodes []Channel `json:"episodes"`
}

// ParsedPlaylist is the parser output: ordered channels plus the unique
// category set encountered.
type ParsedPlaylist struct {
	Channels   []Channel `json:"channels"`
	Categories []string  `json:"categories"`
}

// GroupResult is the classifier output: series plus everything that could not
// be placed in one.
type GroupResult struct {
	Series     []Series  `json:"series"`
	Standalone []Channel `json:"standalone_channels"`
}

// PageResult is one page of a filtered channel listing.
type PageResult struct {
	Channels []Channel `json:"channels"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"has_more"`
}

// Uncategorized is the sentinel group assigned to entries with no
// group-title attribute.
const Uncategorized = "Uncategorized"

var seriesIDStrip = regexp.MustCompile(`[^a-z0-9]+`)

// SeriesID derives the stable series identifier from a normalized base name.
// Two titles that normalize to the same key always yield the same ID.
func SeriesID(normalizedBase string) string {
	slug := strings.Trim(seriesIDStrip.ReplaceAllString(normalizedBase, "-"), "-")
	return "series-" + slug
}

// SortChannels orders channels for default listings: entries with a resolved
// season+episode first (season asc, then episode asc), remainder alphabetical
// by name. The sort is stable so discovery order breaks ties.
func SortChannels(channels []Channel) {
	sort.SliceStable(channels, func(i, j int) bool {
		a, b := channels[i], channels[j]
		switch {
		case a.Episodic() && b.Episodic():
			if a.Season != b.Season {
				return a.Season < b.Season
			}
			return a.Episode < b.Episode
		case a.Episodic():
			return true
		case b.Episodic():
			return false
		default:
			return a.Name < b.Name
		}
	})
}
