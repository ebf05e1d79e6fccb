// Package store persists tenant catalogs in SQLite. A replace stages the new
// catalog under a fresh version number and swaps the tenant's current version
// in one transaction, so readers see either the prior complete snapshot or
// the new one, never a torn mix.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/streamdex/streamdex/internal/catalog"
)

// DefaultBatchSize keeps a single insert statement well under SQLite's
// variable limit while still writing large catalogs in few round trips.
const DefaultBatchSize = 5000

const (
	metaVersion     = "catalogVersion"
	metaTotal       = "totalChannels"
	metaLastUpdated = "lastUpdated"
)

// Store is safe for concurrent use; SQLite WAL mode lets reads proceed while
// a replace is staging.
type Store struct {
	db        *sql.DB
	path      string
	BatchSize int
}

// Open initializes or connects to the catalog database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	s := &Store{db: db, path: path, BatchSize: DefaultBatchSize}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			tenant     TEXT    NOT NULL,
			version    INTEGER NOT NULL,
			id         TEXT    NOT NULL,
			name       TEXT    NOT NULL,
			url        TEXT    NOT NULL,
			logo       TEXT    NOT NULL DEFAULT '',
			group_name TEXT    NOT NULL DEFAULT '',
			epg        TEXT    NOT NULL DEFAULT '',
			season     INTEGER NOT NULL DEFAULT 0,
			episode    INTEGER NOT NULL DEFAULT 0,
			pos        INTEGER NOT NULL,
			PRIMARY KEY (tenant, version, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_channels_group
			ON channels (tenant, version, group_name)`,
		`CREATE TABLE IF NOT EXISTS categories (
			tenant  TEXT    NOT NULL,
			version INTEGER NOT NULL,
			name    TEXT    NOT NULL,
			PRIMARY KEY (tenant, version, name)
		)`,
		`CREATE TABLE IF NOT EXISTS metadata (
			tenant TEXT NOT NULL,
			key    TEXT NOT NULL,
			value  TEXT NOT NULL,
			PRIMARY KEY (tenant, key)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func validTenant(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("%w: tenant required", catalog.ErrValidation)
	}
	return nil
}

// querier is the single-row query surface shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// currentVersion returns the tenant's live catalog version, 0 when no catalog
// has ever been swapped in. Readers must call it on the same transaction as
// their row queries: swap removes outgoing-version rows when it flips the
// version, so a version resolved outside the reading transaction can point at
// rows a concurrent Replace has already deleted.
func currentVersion(ctx context.Context, q querier, tenant string) (int64, error) {
	var v string
	err := q.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE tenant = ? AND key = ?`, tenant, metaVersion).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt %s metadata %q: %w", metaVersion, v, err)
	}
	return n, nil
}

// Replace clears the tenant's catalog and installs the new one. Channels are
// written in BatchSize batches with skip-on-conflict for duplicate IDs. A
// batch failure aborts remaining batches and leaves the staged version
// invisible to readers; retrying the whole Replace is safe.
func (s *Store) Replace(ctx context.Context, tenant string, channels []catalog.Channel, categories []string) error {
	if err := validTenant(tenant); err != nil {
		return err
	}
	start := time.Now()
	cur, err := currentVersion(ctx, s.db, tenant)
	if err != nil {
		return fmt.Errorf("%w: read version: %v", catalog.ErrStore, err)
	}
	next := cur + 1

	// Drop leftovers of any previously failed staging attempt.
	if err := s.pruneVersions(ctx, tenant, cur); err != nil {
		return fmt.Errorf("%w: prune stale staging: %v", catalog.ErrStore, err)
	}

	if err := s.stageCategories(ctx, tenant, next, categories); err != nil {
		return err
	}

	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	for i := 0; i < len(channels); i += batch {
		end := i + batch
		if end > len(channels) {
			end = len(channels)
		}
		if err := s.stageChannelBatch(ctx, tenant, next, i, channels[i:end]); err != nil {
			return fmt.Errorf("%w: channel batch %d-%d: %v", catalog.ErrStore, i, end, err)
		}
	}

	if err := s.swap(ctx, tenant, next); err != nil {
		return fmt.Errorf("%w: swap version %d: %v", catalog.ErrStore, next, err)
	}
	log.Printf("store: replaced catalog tenant=%s channels=%d categories=%d version=%d dur=%s",
		tenant, len(channels), len(categories), next, time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Store) pruneVersions(ctx context.Context, tenant string, keep int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM channels WHERE tenant = ? AND version != ?`, tenant, keep); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM categories WHERE tenant = ? AND version != ?`, tenant, keep)
	return err
}

func (s *Store) stageCategories(ctx context.Context, tenant string, version int64, categories []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin categories: %v", catalog.ErrStore, err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO categories (tenant, version, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare categories: %v", catalog.ErrStore, err)
	}
	defer stmt.Close()
	for _, name := range categories {
		if _, err := stmt.ExecContext(ctx, tenant, version, name); err != nil {
			return fmt.Errorf("%w: insert category %q: %v", catalog.ErrStore, name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit categories: %v", catalog.ErrStore, err)
	}
	return nil
}

// stageChannelBatch writes one batch inside a transaction. Duplicate IDs
// within the staged version are skipped, not overwritten.
func (s *Store) stageChannelBatch(ctx context.Context, tenant string, version int64, offset int, batch []catalog.Channel) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO channels
			(tenant, version, id, name, url, logo, group_name, epg, season, episode, pos)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, ch := range batch {
		if _, err := stmt.ExecContext(ctx, tenant, version,
			ch.ID, ch.Name, ch.URL, ch.Logo, ch.Group, ch.EPG, ch.Season, ch.Episode, offset+i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// swap makes the staged version live and removes the prior snapshot, all in
// one transaction so readers never observe a mixed catalog.
func (s *Store) swap(ctx context.Context, tenant string, version int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM channels WHERE tenant = ? AND version = ?`, tenant, version).Scan(&total); err != nil {
		return err
	}
	meta := map[string]string{
		metaVersion:     strconv.FormatInt(version, 10),
		metaTotal:       strconv.Itoa(total),
		metaLastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metadata (tenant, key, value) VALUES (?, ?, ?)
			 ON CONFLICT (tenant, key) DO UPDATE SET value = excluded.value`, tenant, k, v); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM channels WHERE tenant = ? AND version != ?`, tenant, version); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE tenant = ? AND version != ?`, tenant, version); err != nil {
		return err
	}
	return tx.Commit()
}

// Categories returns the tenant's category names in ascending order.
func (s *Store) Categories(ctx context.Context, tenant string) ([]string, error) {
	if err := validTenant(tenant); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	defer tx.Rollback()
	cur, err := currentVersion(ctx, tx, tenant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT name FROM categories WHERE tenant = ? AND version = ? ORDER BY name ASC`, tenant, cur)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	return out, nil
}

// ChannelsPage returns one page of the tenant's catalog. category "all"
// disables filtering. Listing order matches the default catalog order:
// episodic entries first (season, then episode), remainder by name.
//
// The count and page queries share one transaction with the version lookup,
// so a concurrent Replace cannot produce a page whose total and rows come
// from different snapshots.
func (s *Store) ChannelsPage(ctx context.Context, tenant, category string, page, pageSize int) (catalog.PageResult, error) {
	var res catalog.PageResult
	if err := validTenant(tenant); err != nil {
		return res, err
	}
	if page < 0 || pageSize <= 0 {
		return res, fmt.Errorf("%w: page=%d pageSize=%d", catalog.ErrValidation, page, pageSize)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	defer tx.Rollback()
	cur, err := currentVersion(ctx, tx, tenant)
	if err != nil {
		return res, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}

	where := `tenant = ? AND version = ?`
	args := []any{tenant, cur}
	if category != "all" {
		where += ` AND group_name = ?`
		args = append(args, category)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM channels WHERE `+where, args...).Scan(&res.Total); err != nil {
		return res, fmt.Errorf("%w: count: %v", catalog.ErrStore, err)
	}

	query := `SELECT id, name, url, logo, group_name, epg, season, episode
		FROM channels WHERE ` + where + `
		ORDER BY (season > 0 AND episode > 0) DESC,
		         season ASC, episode ASC,
		         CASE WHEN season > 0 AND episode > 0 THEN '' ELSE name END ASC,
		         pos ASC
		LIMIT ? OFFSET ?`
	args = append(args, pageSize, page*pageSize)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return res, fmt.Errorf("%w: page query: %v", catalog.ErrStore, err)
	}
	defer rows.Close()
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return res, fmt.Errorf("%w: scan: %v", catalog.ErrStore, err)
		}
		res.Channels = append(res.Channels, ch)
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	res.HasMore = (page+1)*pageSize < res.Total
	return res, nil
}

// ChannelsForSearch returns the full filtered candidate list in stable
// catalog order (insert position) for the search engine to rank.
func (s *Store) ChannelsForSearch(ctx context.Context, tenant, category string) ([]catalog.Channel, error) {
	if err := validTenant(tenant); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	defer tx.Rollback()
	cur, err := currentVersion(ctx, tx, tenant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	query := `SELECT id, name, url, logo, group_name, epg, season, episode
		FROM channels WHERE tenant = ? AND version = ?`
	args := []any{tenant, cur}
	if category != "all" {
		query += ` AND group_name = ?`
		args = append(args, category)
	}
	query += ` ORDER BY pos ASC`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	defer rows.Close()
	var out []catalog.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	return out, nil
}

func scanChannel(rows *sql.Rows) (catalog.Channel, error) {
	var ch catalog.Channel
	err := rows.Scan(&ch.ID, &ch.Name, &ch.URL, &ch.Logo, &ch.Group, &ch.EPG, &ch.Season, &ch.Episode)
	return ch, err
}

// HasCatalog reports whether the tenant has any stored channels.
func (s *Store) HasCatalog(ctx context.Context, tenant string) (bool, error) {
	if err := validTenant(tenant); err != nil {
		return false, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	defer tx.Rollback()
	cur, err := currentVersion(ctx, tx, tenant)
	if err != nil {
		return false, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM channels WHERE tenant = ? AND version = ?`, tenant, cur).Scan(&n); err != nil {
		return false, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	return n > 0, nil
}

// Metadata returns the tenant's metadata record (total count, last updated).
func (s *Store) Metadata(ctx context.Context, tenant string) (map[string]string, error) {
	if err := validTenant(tenant); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM metadata WHERE tenant = ?`, tenant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// DeleteAll removes the tenant's channels, categories, and metadata. Deleting
// a tenant that has nothing stored is a no-op, not an error.
func (s *Store) DeleteAll(ctx context.Context, tenant string) error {
	if err := validTenant(tenant); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`DELETE FROM channels WHERE tenant = ?`,
		`DELETE FROM categories WHERE tenant = ?`,
		`DELETE FROM metadata WHERE tenant = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, tenant); err != nil {
			return fmt.Errorf("%w: %v", catalog.ErrStore, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	log.Printf("store: deleted all data tenant=%s", tenant)
	return nil
}
