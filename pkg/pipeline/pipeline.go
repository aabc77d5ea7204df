// Package pipeline decides, per upload, which stages need to run and
// records what was produced so a repeated upload resumes where the last
// one stopped.
package pipeline

import (
	"context"

	"github.com/researchrender/researchrender/pkg/fingerprint"
	"github.com/researchrender/researchrender/pkg/generate"
	"github.com/researchrender/researchrender/pkg/llm"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/models"
	"github.com/researchrender/researchrender/pkg/papers"
)

const (
	MessagePreviouslyProcessed = "previously processed"
	MessageResumedFromSteps    = "resumed from steps"
	MessageNotResearchPaper    = "not a research paper"
)

// Generator produces one stage's artifact from its input.
type Generator interface {
	Generate(ctx context.Context, input string) (string, error)
}

// Options select which stages a request runs.
type Options struct {
	Filename      string
	GenerateSteps bool
	GenerateCode  bool
}

// DefaultOptions runs both stages.
func DefaultOptions() Options {
	return Options{GenerateSteps: true, GenerateCode: true}
}

// Orchestrator runs the steps and code stages against the paper records.
type Orchestrator struct {
	steps   Generator
	code    Generator
	records papers.Store

	// ShortCircuitNonPaper stops after the steps stage when it answered
	// with the not-a-research-paper sentinel.
	ShortCircuitNonPaper bool
}

// New creates an Orchestrator.
func New(steps, code Generator, records papers.Store) *Orchestrator {
	return &Orchestrator{steps: steps, code: code, records: records}
}

// Process runs the stages opts asks for on content. A returned error means
// nothing usable was produced; a code stage failure after successful
// steps is reported on the result instead.
func (o *Orchestrator) Process(ctx context.Context, content string, opts Options) (*models.ProcessResult, error) {
	if !opts.GenerateSteps {
		return o.codeOnly(ctx, content)
	}

	hash := fingerprint.Of(content)
	ctx = logger.WithContentHash(ctx, hash)

	rec := o.loadRecord(ctx, hash)
	switch {
	case rec.Complete():
		logger.Info(ctx, "paper previously processed")
		return &models.ProcessResult{
			ContentHash: hash,
			Steps:       *rec.Steps,
			Code:        rec.Code,
			Message:     MessagePreviouslyProcessed,
		}, nil
	case rec != nil && rec.Steps != nil:
		logger.Info(ctx, "resuming paper from stored steps")
		res := &models.ProcessResult{ContentHash: hash, Steps: *rec.Steps, Message: MessageResumedFromSteps}
		if !opts.GenerateCode || o.skipCode(*rec.Steps) {
			// The non-paper verdict replaces the resume notice.
			o.markNonPaper(res)
			return res, nil
		}
		o.runCode(ctx, res)
		if res.Code != nil {
			rec.Code = res.Code
			if opts.Filename != "" {
				rec.Filename = opts.Filename
			}
			o.saveRecord(ctx, rec)
		}
		return res, nil
	}

	steps, err := o.steps.Generate(ctx, content)
	if err != nil {
		return nil, err
	}

	res := &models.ProcessResult{ContentHash: hash, Steps: steps}
	if opts.GenerateCode && !o.skipCode(steps) {
		o.runCode(ctx, res)
	} else {
		o.markNonPaper(res)
	}

	o.saveRecord(ctx, &models.PaperRecord{
		Filename:    opts.Filename,
		ContentHash: hash,
		Steps:       &steps,
		Code:        res.Code,
	})
	return res, nil
}

func (o *Orchestrator) codeOnly(ctx context.Context, steps string) (*models.ProcessResult, error) {
	code, err := o.code.Generate(ctx, steps)
	if err != nil {
		return nil, err
	}
	return &models.ProcessResult{Steps: steps, Code: &code}, nil
}

func (o *Orchestrator) runCode(ctx context.Context, res *models.ProcessResult) {
	code, err := o.code.Generate(ctx, res.Steps)
	if err != nil {
		res.Error = &models.StageFailure{Stage: models.StageCode, Cause: llm.Cause(err), Message: err.Error()}
		return
	}
	res.Code = &code
}

func (o *Orchestrator) skipCode(steps string) bool {
	return o.ShortCircuitNonPaper && generate.IsNotResearchPaper(steps)
}

func (o *Orchestrator) markNonPaper(res *models.ProcessResult) {
	if generate.IsNotResearchPaper(res.Steps) {
		res.Message = MessageNotResearchPaper
	}
}

func (o *Orchestrator) loadRecord(ctx context.Context, hash string) *models.PaperRecord {
	if o.records == nil {
		return nil
	}
	rec, err := o.records.Get(ctx, hash)
	if err != nil {
		logger.Warn(ctx, "paper record read failed, treating as new", "error", err)
		return nil
	}
	return rec
}

func (o *Orchestrator) saveRecord(ctx context.Context, rec *models.PaperRecord) {
	if o.records == nil {
		return
	}
	if err := o.records.Save(ctx, rec); err != nil {
		logger.Error(ctx, "paper record write failed", "error", err)
	}
}
