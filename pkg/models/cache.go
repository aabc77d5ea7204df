package models

import "time"

// CacheEntry is one persisted generation artifact.
type CacheEntry struct {
	ContentHash string    `json:"content_hash" bson:"content_hash"`
	Stage       Stage     `json:"stage" bson:"stage"`
	Data        string    `json:"data" bson:"data"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// CacheStats reports result store contents and performance.
type CacheStats struct {
	StepsEntries int64 `json:"steps_entries"`
	CodeEntries  int64 `json:"code_entries"`
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
}
