package depcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// index is the SQLite-backed record of materialized cache entries. A row is
// the commit point of an entry: a directory without a row is an aborted build
// and is treated as absent.
type index struct {
	db *sql.DB
	mu sync.Mutex
}

func openIndex(dbPath string) (*index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}

	idx := &index{db: db}
	if err := idx.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize cache index: %w", err)
	}
	return idx, nil
}

func (i *index) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		fingerprint TEXT NOT NULL,
		platform TEXT NOT NULL,
		dir TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_used INTEGER NOT NULL,
		PRIMARY KEY (fingerprint, platform)
	);
	CREATE INDEX IF NOT EXISTS idx_last_used ON entries(last_used);
	`
	_, err := i.db.Exec(schema)
	return err
}

func (i *index) get(ctx context.Context, fingerprint, platform string) (*Entry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	row := i.db.QueryRowContext(ctx,
		"SELECT dir, created_at, last_used FROM entries WHERE fingerprint = ? AND platform = ?",
		fingerprint, platform,
	)

	var dir string
	var createdAt, lastUsed int64
	if err := row.Scan(&dir, &createdAt, &lastUsed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Fingerprint: fingerprint, Platform: platform}
		}
		return nil, fmt.Errorf("query cache entry: %w", err)
	}

	return &Entry{
		Fingerprint: fingerprint,
		Platform:    platform,
		Dir:         dir,
		CreatedAt:   time.Unix(createdAt, 0),
		LastUsed:    time.Unix(lastUsed, 0),
	}, nil
}

func (i *index) put(ctx context.Context, e *Entry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, err := i.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (fingerprint, platform, dir, created_at, last_used) VALUES (?, ?, ?, ?, ?)",
		e.Fingerprint, e.Platform, e.Dir, e.CreatedAt.Unix(), e.LastUsed.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

func (i *index) touch(ctx context.Context, fingerprint, platform string, when time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, err := i.db.ExecContext(ctx,
		"UPDATE entries SET last_used = ? WHERE fingerprint = ? AND platform = ?",
		when.Unix(), fingerprint, platform,
	)
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

func (i *index) remove(ctx context.Context, fingerprint, platform string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, err := i.db.ExecContext(ctx,
		"DELETE FROM entries WHERE fingerprint = ? AND platform = ?",
		fingerprint, platform,
	)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (i *index) listOlderThan(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	rows, err := i.db.QueryContext(ctx,
		"SELECT fingerprint, platform, dir, created_at, last_used FROM entries WHERE last_used < ?",
		cutoff.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query stale entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt, lastUsed int64
		if err := rows.Scan(&e.Fingerprint, &e.Platform, &e.Dir, &createdAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		e.LastUsed = time.Unix(lastUsed, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (i *index) close() error {
	return i.db.Close()
}
