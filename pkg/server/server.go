// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/researchrender/researchrender/pkg/cache"
	"github.com/researchrender/researchrender/pkg/config"
	"github.com/researchrender/researchrender/pkg/docstore"
	"github.com/researchrender/researchrender/pkg/ingest"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/models"
	"github.com/researchrender/researchrender/pkg/papers"
	"github.com/researchrender/researchrender/pkg/pipeline"
	"github.com/researchrender/researchrender/pkg/server/middleware"
)

// Processor runs the generation pipeline.
type Processor interface {
	Process(ctx context.Context, content string, opts pipeline.Options) (*models.ProcessResult, error)
}

// Deps are the collaborators the handlers use. Docs and Stats may be nil.
type Deps struct {
	Pipeline Processor
	Records  papers.Store
	Stats    cache.Statter
	Docs     docstore.Store
}

// Server is the researchrender HTTP API.
type Server struct {
	cfg    *config.Config
	deps   Deps
	policy ingest.Policy
	router *gin.Engine
}

// New creates a Server with its routes and middleware installed.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		policy: cfg.Upload.Policy(),
		router: gin.New(),
	}

	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.CORS())

	limiter := middleware.NewRateLimiter(cfg.Upload.RateLimit, cfg.Upload.RateWindow)
	s.router.POST("/upload", middleware.RateLimit(limiter), s.handleUpload)
	s.router.POST("/generate/code", s.handleGenerateCode)
	s.router.GET("/papers/:hash", s.handleGetPaper)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/stats", s.handleStats)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "researchrender listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
