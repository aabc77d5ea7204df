package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/researchrender/researchrender/pkg/budget"
	"github.com/researchrender/researchrender/pkg/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve researchrender tools over MCP (stdio)",
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

			deps := mcp.Deps{
				Pipeline: orch,
				Records:  st.records,
				Cache:    st.cache,
				Events:   st.tracker,
			}
			if cfg.Budget.Enabled {
				deps.Budget = budget.New(cfg.Budget.Policies, st.tracker)
			}

			return mcp.New(deps, version).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
