// Package cache defines the result store that maps (fingerprint, stage)
// to a generated artifact.
package cache

import (
	"context"
	"fmt"

	"github.com/researchrender/researchrender/pkg/models"
)

// Store persists generated artifacts. Steps are keyed by the paper
// fingerprint and code by the steps fingerprint; the two mappings are kept
// apart so identical steps from different papers share one code entry.
type Store interface {
	// Get returns the artifact for a key. A missing entry is reported as
	// found == false with a nil error.
	Get(ctx context.Context, fingerprint string, stage models.Stage) (artifact string, found bool, err error)
	// Put upserts the artifact for a key, replacing any previous value.
	Put(ctx context.Context, fingerprint string, stage models.Stage, artifact string) error
	// Close releases the underlying storage.
	Close() error
}

// Statter reports result store statistics.
type Statter interface {
	Stats(ctx context.Context) (models.CacheStats, error)
}

// StorageError reports that the backing store could not serve a request.
type StorageError struct {
	Op    string
	Stage models.Stage
	Err   error
}

func (e *StorageError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Stage, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
