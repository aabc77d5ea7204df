package models

import "time"

// PaperRecord is the aggregate outcome of processing one distinct upload.
// Steps may be set without Code; Code is only ever derived from Steps.
type PaperRecord struct {
	Filename    string    `json:"filename" bson:"filename"`
	ContentHash string    `json:"content_hash" bson:"content_hash"`
	Steps       *string   `json:"steps,omitempty" bson:"steps,omitempty"`
	Code        *string   `json:"code,omitempty" bson:"code,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Complete reports whether both stages are stored.
func (r *PaperRecord) Complete() bool {
	return r != nil && r.Steps != nil && r.Code != nil
}

// StageFailure describes a stage that failed while the request as a whole
// still produced a result.
type StageFailure struct {
	Stage   Stage  `json:"stage"`
	Cause   string `json:"cause"`
	Message string `json:"message"`
}

// ProcessResult is what the pipeline hands back to callers.
type ProcessResult struct {
	ContentHash string        `json:"content_hash,omitempty"`
	Steps       string        `json:"steps"`
	Code        *string       `json:"code"`
	Message     string        `json:"message,omitempty"`
	Error       *StageFailure `json:"error,omitempty"`
}
