// Package search ranks catalog entries against free-text queries: tokenize,
// filter with AND semantics, score by match quality, paginate, cache.
package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/streamdex/streamdex/internal/catalog"
)

// Score tiers, highest wins. The penalty discourages long, loosely-matching
// titles from outranking tight ones.
const (
	scoreExactName     = 10000
	scorePhrase        = 400
	scorePhrasePrefix  = 200
	scoreTokenBoundary = 100
	scoreAllBoundaries = 50
	scoreTokenSub      = 40
	scoreTokenPrefix   = 25
)

// CandidateSource supplies the filtered candidate list in stable catalog
// order. Implemented by the store.
type CandidateSource interface {
	ChannelsForSearch(ctx context.Context, tenant, category string) ([]catalog.Channel, error)
}

// Engine is a tokenizing, scoring, caching search engine over one candidate
// source. Create one per store; the cache lives and dies with it.
type Engine struct {
	src   CandidateSource
	cache *Cache
}

// New returns an engine with a default cache. Pass a custom cache to NewWithCache
// when tests need control over TTL or capacity.
func New(src CandidateSource) *Engine {
	return NewWithCache(src, NewCache(0, 0))
}

func NewWithCache(src CandidateSource, cache *Cache) *Engine {
	return &Engine{src: src, cache: cache}
}

// Cache exposes the engine's cache for invalidation and metrics.
func (e *Engine) Cache() *Cache { return e.cache }

// Search returns one relevance-ranked page of catalog entries matching query.
// A query with zero usable tokens yields an empty result, not an error.
func (e *Engine) Search(ctx context.Context, tenant, query, category string, page, pageSize int) (catalog.PageResult, error) {
	var res catalog.PageResult
	if tenant == "" {
		return res, fmt.Errorf("%w: tenant required", catalog.ErrValidation)
	}
	if page < 0 || pageSize <= 0 {
		return res, fmt.Errorf("%w: page=%d pageSize=%d", catalog.ErrValidation, page, pageSize)
	}

	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return res, nil
	}
	phrase := normalizePhrase(query)

	key := fmt.Sprintf("%s\x1f%s\x1f%s\x1f%d\x1f%d", tenant, phrase, category, page, pageSize)
	if cached, ok := e.cache.get(key); ok {
		return cached, nil
	}

	// Snapshot before fetching candidates so a concurrent invalidation keeps
	// this result out of the cache instead of pinning a stale page for a TTL.
	gen := e.cache.generation(tenant)
	candidates, err := e.src.ChannelsForSearch(ctx, tenant, category)
	if err != nil {
		return res, fmt.Errorf("%w: %v", catalog.ErrSearch, err)
	}

	joined := joinedPattern(tokens)
	type scored struct {
		ch    catalog.Channel
		score int
	}
	matches := make([]scored, 0, 64)
	for _, ch := range candidates {
		name := catalog.NormalizeText(ch.Name)
		if !qualifies(name, tokens, joined) {
			continue
		}
		matches = append(matches, scored{ch: ch, score: score(name, phrase, tokens)})
	}

	// Stable: ties keep the catalog's original relative order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	res.Total = len(matches)
	res.HasMore = (page+1)*pageSize < res.Total
	start := page * pageSize
	if start < len(matches) {
		end := start + pageSize
		if end > len(matches) {
			end = len(matches)
		}
		res.Channels = make([]catalog.Channel, 0, end-start)
		for _, m := range matches[start:end] {
			res.Channels = append(res.Channels, m.ch)
		}
	}

	e.cache.put(key, tenant, gen, res)
	return res, nil
}

// qualifies applies the candidate filter: every token as a substring (any
// order), or the joined word-boundary-tolerant pattern. The second path
// recovers matches across punctuation variants ("spider-man" vs "spider man").
func qualifies(name string, tokens []string, joined *regexp.Regexp) bool {
	all := true
	for _, tok := range tokens {
		if !strings.Contains(name, tok) {
			all = false
			break
		}
	}
	if all {
		return true
	}
	return joined != nil && joined.MatchString(name)
}

// joinedPattern builds a pattern matching all tokens in order with any
// characters between them.
func joinedPattern(tokens []string) *regexp.Regexp {
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = regexp.QuoteMeta(tok)
	}
	re, err := regexp.Compile(strings.Join(quoted, ".*"))
	if err != nil {
		return nil
	}
	return re
}

// score rates one qualifying candidate. name and phrase are both normalized.
func score(name, phrase string, tokens []string) int {
	if name == phrase {
		return scoreExactName
	}
	s := 0
	if strings.Contains(name, phrase) {
		s += scorePhrase
		if strings.HasPrefix(name, phrase) {
			s += scorePhrasePrefix
		}
	}
	allBoundaries := true
	for _, tok := range tokens {
		switch {
		case wordBoundaryMatch(name, tok):
			s += scoreTokenBoundary
		case strings.Contains(name, tok):
			s += scoreTokenSub
			allBoundaries = false
		default:
			allBoundaries = false
		}
		if strings.HasPrefix(name, tok) {
			s += scoreTokenPrefix
		}
	}
	if allBoundaries {
		s += scoreAllBoundaries
	}
	if d := len(name) - len(phrase); d > 0 {
		s -= d
	}
	return s
}
