// Package ingest drives the parse-classify-store pipeline that turns a raw
// M3U payload into a tenant's queryable catalog.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/classify"
	"github.com/streamdex/streamdex/internal/playlist"
)

// CatalogWriter is the store surface the pipeline needs.
type CatalogWriter interface {
	Replace(ctx context.Context, tenant string, channels []catalog.Channel, categories []string) error
	DeleteAll(ctx context.Context, tenant string) error
}

// Invalidator drops cached query results for a tenant after its catalog
// changes. Satisfied by the search cache.
type Invalidator interface {
	InvalidateTenant(tenant string)
}

// Summary describes one completed ingestion.
type Summary struct {
	Channels   int    `json:"channels"`
	Categories int    `json:"categories"`
	Elapsed    string `json:"elapsed"`
}

// Ingester serializes catalog writes per tenant. A second ingestion for a
// tenant whose previous one is still running is rejected, not queued.
type Ingester struct {
	store CatalogWriter
	cache Invalidator

	mu     sync.Mutex
	active map[string]bool
}

func New(store CatalogWriter, cache Invalidator) *Ingester {
	return &Ingester{store: store, cache: cache, active: make(map[string]bool)}
}

func (g *Ingester) tryLock(tenant string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[tenant] {
		return false
	}
	g.active[tenant] = true
	return true
}

func (g *Ingester) unlock(tenant string) {
	g.mu.Lock()
	delete(g.active, tenant)
	g.mu.Unlock()
}

// Ingest parses raw, annotates season/episode numbers, and atomically
// replaces the tenant's catalog. The previous catalog stays readable until
// the replacement commits; a parse or store failure leaves it untouched.
func (g *Ingester) Ingest(ctx context.Context, tenant, raw string) (Summary, error) {
	var sum Summary
	if tenant == "" {
		return sum, fmt.Errorf("%w: tenant required", catalog.ErrValidation)
	}
	if !g.tryLock(tenant) {
		return sum, fmt.Errorf("%w: tenant %s", catalog.ErrIngestInProgress, tenant)
	}
	defer g.unlock(tenant)

	start := time.Now()
	parsed, err := playlist.Parse(raw)
	if err != nil {
		return sum, err
	}
	channels := classify.Annotate(parsed.Channels)

	if err := g.store.Replace(ctx, tenant, channels, parsed.Categories); err != nil {
		return sum, err
	}
	g.cache.InvalidateTenant(tenant)

	elapsed := time.Since(start)
	log.Printf("ingest: tenant=%s channels=%d categories=%d elapsed=%s",
		tenant, len(channels), len(parsed.Categories), elapsed.Round(time.Millisecond))
	return Summary{
		Channels:   len(channels),
		Categories: len(parsed.Categories),
		Elapsed:    elapsed.Round(time.Millisecond).String(),
	}, nil
}

// DeleteAll removes the tenant's catalog and drops its cached searches.
// Deleting a tenant with no data succeeds.
func (g *Ingester) DeleteAll(ctx context.Context, tenant string) error {
	if tenant == "" {
		return fmt.Errorf("%w: tenant required", catalog.ErrValidation)
	}
	if !g.tryLock(tenant) {
		return fmt.Errorf("%w: tenant %s", catalog.ErrIngestInProgress, tenant)
	}
	defer g.unlock(tenant)

	if err := g.store.DeleteAll(ctx, tenant); err != nil {
		return err
	}
	g.cache.InvalidateTenant(tenant)
	log.Printf("ingest: tenant=%s catalog deleted", tenant)
	return nil
}
