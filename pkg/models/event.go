package models

import "time"

// Outcome classifies a single external service call.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeTransient Outcome = "transient"
	OutcomePermanent Outcome = "permanent"
)

// GenerationEvent records one outbound call to a generative service.
type GenerationEvent struct {
	ID          int64     `json:"id"`
	Service     string    `json:"service"`
	Stage       Stage     `json:"stage"`
	ContentHash string    `json:"content_hash"`
	Attempt     int       `json:"attempt"`
	Outcome     Outcome   `json:"outcome"`
	LatencyMs   int64     `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventSummary aggregates events by service, stage and outcome.
type EventSummary struct {
	Service      string  `json:"service"`
	Stage        Stage   `json:"stage"`
	Outcome      Outcome `json:"outcome"`
	Calls        int     `json:"calls"`
	AvgLatencyMs int64   `json:"avg_latency_ms"`
}
