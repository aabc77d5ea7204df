// Package papers stores the per-upload PaperRecord used to decide where a
// repeated upload resumes.
package papers

import (
	"context"

	"github.com/researchrender/researchrender/pkg/models"
)

// Store persists PaperRecords keyed by content hash.
type Store interface {
	// Get returns the record for hash, or nil when none exists.
	Get(ctx context.Context, hash string) (*models.PaperRecord, error)
	// Save upserts rec by its ContentHash.
	Save(ctx context.Context, rec *models.PaperRecord) error
	// List returns the most recently updated records first.
	List(ctx context.Context, limit int) ([]models.PaperRecord, error)
	Close() error
}
