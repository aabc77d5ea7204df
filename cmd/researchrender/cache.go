package main

import (
	"context"
	"fmt"

	"github.com/researchrender/researchrender/pkg/models"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the generation cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := context.Background()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			stats, err := st.cache.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Steps entries: %d\nCode entries:  %d\n", stats.StepsEntries, stats.CodeEntries)
			return nil
		},
	}

	var stage string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			var target models.Stage
			if stage != "" {
				s, err := models.ParseStage(stage)
				if err != nil {
					return err
				}
				target = s
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := context.Background()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.cache.Clear(ctx, target); err != nil {
				return err
			}
			if target == "" {
				fmt.Println("All cache entries cleared.")
			} else {
				fmt.Printf("Cache entries for stage %s cleared.\n", target)
			}
			return nil
		},
	}
	clearCmd.Flags().StringVar(&stage, "stage", "", "only clear one stage (steps or code)")

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
