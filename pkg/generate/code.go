package generate

import (
	"context"
	"time"

	"github.com/researchrender/researchrender/pkg/fingerprint"
	"github.com/researchrender/researchrender/pkg/llm"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/models"
)

// CodeGenerator turns an implementation plan into source code with a
// single attempt.
type CodeGenerator struct {
	exec executor
}

// NewCode creates a CodeGenerator calling p under the throttle id service.
func NewCode(service string, p llm.Provider, deps Deps) *CodeGenerator {
	return &CodeGenerator{exec: executor{
		stage:    models.StageCode,
		service:  service,
		provider: p,
		deps:     deps,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}}
}

// SetTimeout overrides the per-call deadline. Zero disables it.
func (g *CodeGenerator) SetTimeout(d time.Duration) { g.exec.timeout = d }

// Generate returns code for steps. Entries are keyed by the fingerprint of
// the steps, so identical plans from different papers share one entry.
func (g *CodeGenerator) Generate(ctx context.Context, steps string) (string, error) {
	fp := fingerprint.Of(steps)
	if text, ok := g.exec.lookup(ctx, fp); ok {
		return text, nil
	}

	out := g.exec.call(ctx, fp, CodePrompt(steps), 1)
	if out.Kind != llm.OK {
		logger.Error(ctx, "code generation failed", "error", out.Err)
		return "", &StageError{Stage: models.StageCode, Attempts: 1, Err: out.Err}
	}
	g.exec.save(ctx, fp, out.Text)
	return out.Text, nil
}
