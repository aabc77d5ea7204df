package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/researchrender/researchrender/pkg/budget"
	"github.com/researchrender/researchrender/pkg/cache"
	cachemongo "github.com/researchrender/researchrender/pkg/cache/mongo"
	cachesqlite "github.com/researchrender/researchrender/pkg/cache/sqlite"
	"github.com/researchrender/researchrender/pkg/config"
	"github.com/researchrender/researchrender/pkg/generate"
	"github.com/researchrender/researchrender/pkg/llm"
	"github.com/researchrender/researchrender/pkg/llm/gemini"
	"github.com/researchrender/researchrender/pkg/llm/openai"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/models"
	"github.com/researchrender/researchrender/pkg/papers"
	papersmongo "github.com/researchrender/researchrender/pkg/papers/mongo"
	paperssqlite "github.com/researchrender/researchrender/pkg/papers/sqlite"
	"github.com/researchrender/researchrender/pkg/pipeline"
	"github.com/researchrender/researchrender/pkg/throttle"
	"github.com/researchrender/researchrender/pkg/tracker"
)

// resultStore is what the CLI needs from either cache backend.
type resultStore interface {
	cache.Store
	cache.Statter
	Clear(ctx context.Context, stage models.Stage) error
}

// stores holds the opened persistence layer for one command.
type stores struct {
	cache   resultStore
	records papers.Store
	tracker *tracker.SQLiteTracker
	closers []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// openStores opens the configured backend. The tracker always lives in
// the SQLite file at db_path.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}

	switch cfg.Storage.Backend {
	case config.BackendMongo:
		client, db, err := cachemongo.Dial(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("init mongo: %w", err)
		}
		s.closers = append(s.closers, func() error { return client.Disconnect(context.Background()) })

		c, err := cachemongo.New(ctx, db)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("init cache: %w", err)
		}
		s.cache = c
		r, err := papersmongo.New(ctx, db)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("init paper records: %w", err)
		}
		s.records = r
	default:
		c, err := cachesqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		s.cache = c
		s.closers = append(s.closers, c.Close)

		r, err := paperssqlite.New(cfg.DBPath)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("init paper records: %w", err)
		}
		s.records = r
		s.closers = append(s.closers, r.Close)
	}

	tr, err := tracker.New(cfg.DBPath)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("init tracker: %w", err)
	}
	s.tracker = tr
	s.closers = append(s.closers, tr.Close)
	return s, nil
}

func newProvider(ctx context.Context, name string, svc config.ServiceConfig) (llm.Provider, error) {
	switch svc.Provider {
	case config.ProviderGemini:
		return gemini.New(ctx, gemini.Config{APIKey: svc.APIKey, Model: svc.Model, BaseURL: svc.BaseURL})
	case config.ProviderOpenAI:
		return openai.New(openai.Config{Name: name, APIKey: svc.APIKey, BaseURL: svc.BaseURL, Model: svc.Model})
	default:
		return nil, fmt.Errorf("services.%s: unknown provider %q", name, svc.Provider)
	}
}

// buildPipeline wires providers, throttle, budget and stores into an
// Orchestrator.
func buildPipeline(ctx context.Context, cfg *config.Config, s *stores) (*pipeline.Orchestrator, error) {
	stepsProvider, err := newProvider(ctx, string(models.StageSteps), cfg.Services.Steps)
	if err != nil {
		return nil, err
	}
	codeProvider, err := newProvider(ctx, string(models.StageCode), cfg.Services.Code)
	if err != nil {
		return nil, err
	}

	th := throttle.New(map[string]int{
		string(models.StageSteps): cfg.Services.Steps.RPM,
		string(models.StageCode):  cfg.Services.Code.RPM,
	})
	deps := generate.Deps{
		Cache:    s.cache,
		Throttle: th,
		Recorder: s.tracker,
	}
	if cfg.Budget.Enabled {
		deps.Budget = budget.New(cfg.Budget.Policies, s.tracker)
	}

	stepsGen := generate.NewSteps(string(models.StageSteps), stepsProvider, deps)
	stepsGen.MaxAttempts = cfg.Retry.MaxAttempts
	stepsGen.RetryDelay = cfg.Retry.Delay
	stepsGen.SetTimeout(cfg.RequestTimeout)

	codeGen := generate.NewCode(string(models.StageCode), codeProvider, deps)
	codeGen.SetTimeout(cfg.RequestTimeout)

	orch := pipeline.New(stepsGen, codeGen, s.records)
	orch.ShortCircuitNonPaper = cfg.Pipeline.ShortCircuitNonPaper

	logger.Debug(ctx, "pipeline ready",
		"steps_provider", stepsProvider.Name(), "steps_rpm", cfg.Services.Steps.RPM,
		"code_provider", codeProvider.Name(), "code_rpm", cfg.Services.Code.RPM,
		"storage", cfg.Storage.Backend)
	return orch, nil
}
