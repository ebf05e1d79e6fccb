// Package playlist parses extended-M3U text into channel records.
package playlist

import (
	"bufio"
	"hash/fnv"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/streamdex/streamdex/internal/catalog"
)

const maxLineSize = 1 << 20 // 1 MiB per line

var attrRe = regexp.MustCompile(`([A-Za-z][A-Za-z0-9-]*)="([^"]*)"`)

// Parse turns raw extended-M3U text into an ordered channel list plus the
// unique set of categories encountered.
//
// Each #EXTINF directive is paired with the next non-blank, non-comment line
// as its URI. A directive with no usable URI is dropped and logged; it never
// aborts the rest of the file. Input with no recognizable directive at all is
// a *catalog.ParseError; a structurally valid playlist that yields zero
// usable entries is catalog.ErrEmptyPlaylist.
func Parse(raw string) (catalog.ParsedPlaylist, error) {
	var out catalog.ParsedPlaylist
	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(nil, maxLineSize)

	var (
		pending    *directive
		sawAny     bool
		dropped    int
		categories []string
		seen       = map[string]bool{}
	)
	addCategory := func(group string) {
		if !seen[group] {
			seen[group] = true
			categories = append(categories, group)
		}
	}
	drop := func(d *directive) {
		dropped++
		log.Printf("playlist: dropping directive with no URI: %q", d.name)
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXTINF:") {
			if pending != nil {
				drop(pending)
			}
			d := parseDirective(line)
			pending = &d
			sawAny = true
			continue
		}
		if strings.HasPrefix(line, "#") {
			// #EXTM3U header, #EXTGRP and friends: not a URI.
			continue
		}
		if pending == nil {
			continue
		}
		uri := cleanURI(line)
		if uri == "" {
			drop(pending)
			pending = nil
			continue
		}
		addCategory(pending.group)
		out.Channels = append(out.Channels, catalog.Channel{
			ID:    stableID(uri, pending.name),
			Name:  pending.name,
			URL:   uri,
			Logo:  pending.logo,
			Group: pending.group,
			EPG:   pending.epg,
		})
		pending = nil
	}
	if err := sc.Err(); err != nil {
		return out, &catalog.ParseError{Reason: err.Error()}
	}
	if pending != nil {
		drop(pending)
	}

	if !sawAny {
		return out, &catalog.ParseError{Reason: "no #EXTINF directives found"}
	}
	if len(out.Channels) == 0 {
		return out, catalog.ErrEmptyPlaylist
	}
	if dropped > 0 {
		log.Printf("playlist: parsed %d channels, dropped %d URI-less directives", len(out.Channels), dropped)
	}
	out.Categories = categories
	catalog.SortChannels(out.Channels)
	return out, nil
}

type directive struct {
	name  string
	group string
	logo  string
	epg   string
}

// parseDirective splits a #EXTINF line into its quoted attributes and the
// display name after the attribute section. The title is kept verbatim except
// for surrounding quotes; season/episode inference happens downstream.
func parseDirective(line string) directive {
	d := directive{group: catalog.Uncategorized}
	body := strings.TrimPrefix(line, "#EXTINF:")
	for _, m := range attrRe.FindAllStringSubmatch(body, -1) {
		switch strings.ToLower(m[1]) {
		case "tvg-id":
			d.epg = m[2]
		case "tvg-logo":
			d.logo = m[2]
		case "group-title":
			if g := strings.TrimSpace(m[2]); g != "" {
				d.group = g
			}
		}
	}
	d.name = displayName(body)
	return d
}

// displayName returns the text after the comma that ends the attribute
// section. Titles may themselves contain commas, so the split point is the
// first comma after the last quoted attribute, not the last comma in the line.
func displayName(body string) string {
	tail := body
	if q := strings.LastIndex(body, `"`); q >= 0 {
		tail = body[q+1:]
	}
	if i := strings.Index(tail, ","); i >= 0 {
		tail = tail[i+1:]
	} else if tail == body {
		// No attributes and no comma: nothing usable as a name.
		tail = ""
	}
	return strings.TrimSpace(strings.ReplaceAll(tail, `"`, ""))
}

// cleanURI trims whitespace and strips quotes so stored URLs are usable as-is.
func cleanURI(line string) string {
	return strings.TrimSpace(strings.ReplaceAll(line, `"`, ""))
}

// stableID hashes url+name so re-parsing the same playlist yields the same
// channel IDs and exact duplicate entries collide (the store skips them).
func stableID(url, name string) string {
	h := fnv.New64a()
	io.WriteString(h, url)
	io.WriteString(h, "\x00")
	io.WriteString(h, name)
	return "ch_" + strconv.FormatUint(h.Sum64(), 10)
}
