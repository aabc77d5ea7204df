package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	cachesqlite "github.com/researchrender/researchrender/pkg/cache/sqlite"
	"github.com/researchrender/researchrender/pkg/models"
)

// Tracker records and queries outbound generation calls.
type Tracker interface {
	// Record stores one external call.
	Record(ctx context.Context, ev models.GenerationEvent) error
	// CountByService returns the number of calls made to a service since a given time.
	CountByService(ctx context.Context, service string, since time.Time) (int64, error)
	// Summary returns call counts grouped by service, stage and outcome.
	Summary(ctx context.Context) ([]models.EventSummary, error)
	// Recent returns the latest events, newest first.
	Recent(ctx context.Context, limit int) ([]models.GenerationEvent, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS generation_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	service TEXT NOT NULL,
	stage TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	attempt INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	latency_ms INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_service_time ON generation_events(service, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := cachesqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a generation event.
func (t *SQLiteTracker) Record(ctx context.Context, ev models.GenerationEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO generation_events (service, stage, content_hash, attempt, outcome, latency_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Service, ev.Stage, ev.ContentHash, ev.Attempt, ev.Outcome, ev.LatencyMs, ev.Error, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// CountByService returns the number of calls made to a service since a given time.
func (t *SQLiteTracker) CountByService(ctx context.Context, service string, since time.Time) (int64, error) {
	var n int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generation_events WHERE service = ? AND created_at >= ?`,
		service, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Summary returns call counts grouped by service, stage and outcome.
func (t *SQLiteTracker) Summary(ctx context.Context) ([]models.EventSummary, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT service, stage, outcome, COUNT(*), CAST(AVG(latency_ms) AS INTEGER)
		 FROM generation_events GROUP BY service, stage, outcome ORDER BY service, stage, outcome`)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.EventSummary
	for rows.Next() {
		var s models.EventSummary
		if err := rows.Scan(&s.Service, &s.Stage, &s.Outcome, &s.Calls, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Recent returns the latest events, newest first.
func (t *SQLiteTracker) Recent(ctx context.Context, limit int) ([]models.GenerationEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, service, stage, content_hash, attempt, outcome, latency_ms, error, created_at
		 FROM generation_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []models.GenerationEvent
	for rows.Next() {
		var e models.GenerationEvent
		if err := rows.Scan(&e.ID, &e.Service, &e.Stage, &e.ContentHash, &e.Attempt, &e.Outcome, &e.LatencyMs, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
