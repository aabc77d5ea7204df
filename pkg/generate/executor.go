// Package generate runs the two generation stages: paper text to an
// implementation plan, and plan to source code. Each stage consults the
// result store before calling out and stores what it produces.
package generate

import (
	"context"
	"errors"
	"time"

	"github.com/researchrender/researchrender/pkg/budget"
	"github.com/researchrender/researchrender/pkg/cache"
	"github.com/researchrender/researchrender/pkg/llm"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/models"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 60 * time.Second

// Acquirer blocks until a call to the named service is allowed.
type Acquirer interface {
	Acquire(ctx context.Context, serviceID string) error
}

// BudgetChecker reports whether a service may be called.
type BudgetChecker interface {
	Check(ctx context.Context, service string) error
}

// Recorder stores one event per outbound call.
type Recorder interface {
	Record(ctx context.Context, ev models.GenerationEvent) error
}

// Deps are the collaborators shared by both stages. Only Cache is required.
type Deps struct {
	Cache    cache.Store
	Throttle Acquirer
	Budget   BudgetChecker
	Recorder Recorder
}

type executor struct {
	stage    models.Stage
	service  string
	provider llm.Provider
	deps     Deps
	timeout  time.Duration
	now      func() time.Time
}

func (e *executor) lookup(ctx context.Context, fp string) (string, bool) {
	text, found, err := e.deps.Cache.Get(ctx, fp, e.stage)
	if err != nil {
		logger.Warn(ctx, "cache read failed, treating as miss", "stage", e.stage, "error", err)
		return "", false
	}
	if found {
		logger.Debug(ctx, "cache hit", "stage", e.stage)
	} else {
		logger.Debug(ctx, "cache miss", "stage", e.stage)
	}
	return text, found
}

func (e *executor) save(ctx context.Context, fp, text string) {
	if err := e.deps.Cache.Put(ctx, fp, e.stage, text); err != nil {
		logger.Error(ctx, "cache write failed", "stage", e.stage, "error", err)
	}
}

// call performs one throttled, budgeted, time-bounded provider call.
func (e *executor) call(ctx context.Context, fp, prompt string, attempt int) llm.Outcome {
	if e.deps.Budget != nil {
		if err := e.deps.Budget.Check(ctx, e.service); err != nil {
			if errors.Is(err, budget.ErrBudgetExceeded) {
				return llm.Outcome{Kind: llm.Permanent, Err: &llm.PermanentError{Provider: e.provider.Name(), Quota: true, Err: err}}
			}
			logger.Warn(ctx, "budget check failed", "service", e.service, "error", err)
		}
	}

	if e.deps.Throttle != nil {
		if err := e.deps.Throttle.Acquire(ctx, e.service); err != nil {
			return llm.Outcome{Kind: llm.Permanent, Err: err}
		}
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := e.now()
	text, err := e.provider.Generate(callCtx, prompt)
	out := llm.Classify(e.provider.Name(), text, err)
	e.record(ctx, fp, attempt, out, e.now().Sub(start))
	return out
}

func (e *executor) record(ctx context.Context, fp string, attempt int, out llm.Outcome, latency time.Duration) {
	if e.deps.Recorder == nil {
		return
	}
	ev := models.GenerationEvent{
		Service:     e.service,
		Stage:       e.stage,
		ContentHash: fp,
		Attempt:     attempt,
		Outcome:     outcomeOf(out.Kind),
		LatencyMs:   latency.Milliseconds(),
		CreatedAt:   e.now().UTC(),
	}
	if out.Err != nil {
		ev.Error = out.Err.Error()
	}
	if err := e.deps.Recorder.Record(ctx, ev); err != nil {
		logger.Warn(ctx, "record generation event", "error", err)
	}
}

func outcomeOf(k llm.Kind) models.Outcome {
	switch k {
	case llm.OK:
		return models.OutcomeOK
	case llm.Transient:
		return models.OutcomeTransient
	default:
		return models.OutcomePermanent
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
