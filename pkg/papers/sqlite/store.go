package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	cachesqlite "github.com/researchrender/researchrender/pkg/cache/sqlite"
	"github.com/researchrender/researchrender/pkg/models"
)

// Store keeps PaperRecords in SQLite.
type Store struct {
	db *sql.DB
}

const createPapersTable = `
CREATE TABLE IF NOT EXISTS papers (
	content_hash TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	steps TEXT,
	code TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_papers_updated ON papers(updated_at);
`

// New opens the papers table in dbPath, creating it when missing.
func New(dbPath string) (*Store, error) {
	db, err := cachesqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open papers db: %w", err)
	}
	if _, err := db.Exec(createPapersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate papers db: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the record for hash, or nil when none exists.
func (s *Store) Get(ctx context.Context, hash string) (*models.PaperRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content_hash, filename, steps, code, created_at, updated_at FROM papers WHERE content_hash = ?`,
		hash,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}
	return rec, nil
}

// Save upserts rec. CreatedAt is kept from the first insert.
func (s *Store) Save(ctx context.Context, rec *models.PaperRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (content_hash, filename, steps, code, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash) DO UPDATE SET
			filename = excluded.filename,
			steps = excluded.steps,
			code = excluded.code,
			updated_at = excluded.updated_at`,
		rec.ContentHash, rec.Filename, nullable(rec.Steps), nullable(rec.Code), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save paper: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]models.PaperRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_hash, filename, steps, code, created_at, updated_at
		 FROM papers ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	var recs []models.PaperRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.PaperRecord, error) {
	var rec models.PaperRecord
	var steps, code sql.NullString
	if err := row.Scan(&rec.ContentHash, &rec.Filename, &steps, &code, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if steps.Valid {
		rec.Steps = &steps.String
	}
	if code.Valid {
		rec.Code = &code.String
	}
	return &rec, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
