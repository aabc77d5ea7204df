package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/researchrender/researchrender/pkg/cache"
	"github.com/researchrender/researchrender/pkg/models"
)

// Cache is the result store backed by SQLite. Each stage lives in its own
// table.
type Cache struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTables = `
CREATE TABLE IF NOT EXISTS steps_cache (
	content_hash TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS code_cache (
	content_hash TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Open opens a SQLite database with WAL journaling and a busy timeout so
// several stores can share one file.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// New creates a Cache with the given database path.
func New(dbPath string) (*Cache, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db}, nil
}

func tableFor(stage models.Stage) (string, error) {
	switch stage {
	case models.StageSteps:
		return "steps_cache", nil
	case models.StageCode:
		return "code_cache", nil
	}
	return "", fmt.Errorf("unknown stage %q", stage)
}

// Get retrieves a cached artifact.
func (c *Cache) Get(ctx context.Context, fingerprint string, stage models.Stage) (string, bool, error) {
	table, err := tableFor(stage)
	if err != nil {
		return "", false, &cache.StorageError{Op: "get", Stage: stage, Err: err}
	}

	var data string
	err = c.db.QueryRowContext(ctx,
		`SELECT data FROM `+table+` WHERE content_hash = ?`, fingerprint,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return "", false, nil
	}
	if err != nil {
		c.misses.Add(1)
		return "", false, &cache.StorageError{Op: "get", Stage: stage, Err: err}
	}

	c.hits.Add(1)
	return data, true, nil
}

// Put stores an artifact, overwriting any previous value for the key.
func (c *Cache) Put(ctx context.Context, fingerprint string, stage models.Stage, artifact string) error {
	table, err := tableFor(stage)
	if err != nil {
		return &cache.StorageError{Op: "put", Stage: stage, Err: err}
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+table+` (content_hash, data, updated_at) VALUES (?, ?, ?)`,
		fingerprint, artifact, time.Now().UTC(),
	)
	if err != nil {
		return &cache.StorageError{Op: "put", Stage: stage, Err: err}
	}
	return nil
}

// Stats returns entry counts and hit/miss counters.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var stats models.CacheStats
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM steps_cache`).Scan(&stats.StepsEntries); err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM code_cache`).Scan(&stats.CodeEntries); err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	stats.Hits = c.hits.Load()
	stats.Misses = c.misses.Load()
	return stats, nil
}

// Clear removes cache entries for one stage, or every stage when stage is
// empty.
func (c *Cache) Clear(ctx context.Context, stage models.Stage) error {
	stages := models.Stages
	if stage != "" {
		stages = []models.Stage{stage}
	}
	for _, s := range stages {
		table, err := tableFor(s)
		if err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
		if _, err := c.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
