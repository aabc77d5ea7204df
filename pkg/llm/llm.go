// Package llm defines the boundary to external generative services and the
// failure taxonomy the stage executors act on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider sends one prompt to a generative service and returns a single
// text completion.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// TransientError is a server-side or timeout failure worth retrying.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a failure that retrying cannot fix. Quota is set when
// the provider reported resource exhaustion.
type PermanentError struct {
	Provider string
	Quota    bool
	Err      error
}

func (e *PermanentError) Error() string {
	if e.Quota {
		return fmt.Sprintf("%s: quota exhausted: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Cause names the failure class found in err's chain: "transient",
// "quota", "permanent", "canceled" or "unknown".
func Cause(err error) string {
	var pe *PermanentError
	if errors.As(err, &pe) {
		if pe.Quota {
			return "quota"
		}
		return "permanent"
	}
	var te *TransientError
	if errors.As(err, &te) {
		return "transient"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "unknown"
}

// FromStatus maps an HTTP status reported by a provider to the taxonomy.
func FromStatus(provider string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &PermanentError{Provider: provider, Quota: true, Err: err}
	case status == http.StatusRequestTimeout, status >= 500:
		return &TransientError{Provider: provider, Err: err}
	default:
		return &PermanentError{Provider: provider, Err: err}
	}
}

// Kind tags an Outcome.
type Kind int

const (
	OK Kind = iota
	Transient
	Permanent
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case Transient:
		return "transient"
	default:
		return "permanent"
	}
}

// Outcome is the tagged result of one provider call.
type Outcome struct {
	Kind Kind
	Text string
	Err  error
}

// Classify turns a provider return into an Outcome. Deadline expiry counts
// as transient; anything not already classified is permanent.
func Classify(provider, text string, err error) Outcome {
	if err == nil {
		return Outcome{Kind: OK, Text: text}
	}

	var te *TransientError
	if errors.As(err, &te) {
		return Outcome{Kind: Transient, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Kind: Transient, Err: &TransientError{Provider: provider, Err: err}}
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return Outcome{Kind: Permanent, Err: err}
	}
	return Outcome{Kind: Permanent, Err: &PermanentError{Provider: provider, Err: err}}
}
