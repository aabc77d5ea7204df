package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/researchrender/researchrender/pkg/docstore"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			orch, err := buildPipeline(ctx, cfg, st)
			if err != nil {
				return err
			}

			deps := server.Deps{Pipeline: orch, Records: st.records, Stats: st.cache}
			if cfg.Documents.Enabled {
				docs, err := docstore.NewMinio(cfg.Documents.MinioConfig)
				if err != nil {
					return fmt.Errorf("init document store: %w", err)
				}
				if err := docs.EnsureBucket(ctx); err != nil {
					return fmt.Errorf("init document store: %w", err)
				}
				deps.Docs = docs
			}

			gin.SetMode(gin.ReleaseMode)
			logger.Info(ctx, "starting researchrender", "config", configPath, "storage", cfg.Storage.Backend)
			return server.New(cfg, deps).ListenAndServe(ctx)
		},
	}
}
