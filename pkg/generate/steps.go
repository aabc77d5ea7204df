package generate

import (
	"context"
	"time"

	"github.com/researchrender/researchrender/pkg/fingerprint"
	"github.com/researchrender/researchrender/pkg/llm"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/models"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
)

// StepsGenerator turns paper text into an implementation plan. Transient
// failures are retried with a fixed delay; permanent ones are not.
type StepsGenerator struct {
	MaxAttempts int
	RetryDelay  time.Duration

	exec  executor
	sleep func(context.Context, time.Duration) error
}

// NewSteps creates a StepsGenerator calling p under the throttle id service.
func NewSteps(service string, p llm.Provider, deps Deps) *StepsGenerator {
	return &StepsGenerator{
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		exec: executor{
			stage:    models.StageSteps,
			service:  service,
			provider: p,
			deps:     deps,
			timeout:  DefaultTimeout,
			now:      time.Now,
		},
		sleep: sleepContext,
	}
}

// SetTimeout overrides the per-call deadline. Zero disables it.
func (g *StepsGenerator) SetTimeout(d time.Duration) { g.exec.timeout = d }

// Generate returns the plan for paperText, from the result store when
// present.
func (g *StepsGenerator) Generate(ctx context.Context, paperText string) (string, error) {
	fp := fingerprint.Of(paperText)
	if text, ok := g.exec.lookup(ctx, fp); ok {
		return text, nil
	}

	attempts := g.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	prompt := StepsPrompt(paperText)

	var last llm.Outcome
	for attempt := 1; attempt <= attempts; attempt++ {
		last = g.exec.call(ctx, fp, prompt, attempt)
		switch last.Kind {
		case llm.OK:
			g.exec.save(ctx, fp, last.Text)
			return last.Text, nil
		case llm.Permanent:
			logger.Error(ctx, "steps generation failed", "attempt", attempt, "error", last.Err)
			return "", &StageError{Stage: models.StageSteps, Attempts: attempt, Err: last.Err}
		}

		logger.Warn(ctx, "steps generation attempt failed", "attempt", attempt, "max_attempts", attempts, "error", last.Err)
		if attempt == attempts {
			break
		}
		if err := g.sleep(ctx, g.RetryDelay); err != nil {
			return "", &StageError{Stage: models.StageSteps, Attempts: attempt, Err: err}
		}
	}

	logger.Error(ctx, "steps generation exhausted retries", "attempts", attempts, "error", last.Err)
	return "", &StageError{Stage: models.StageSteps, Attempts: attempts, Err: last.Err}
}
