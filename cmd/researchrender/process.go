package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/researchrender/researchrender/pkg/ingest"
	"github.com/researchrender/researchrender/pkg/pipeline"
	"github.com/spf13/cobra"
)

func newProcessCmd() *cobra.Command {
	var stepsOnly, codeOnly bool

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Generate steps and code for a paper on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if stepsOnly && codeOnly {
				return errors.New("--steps-only and --code-only are mutually exclusive")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			filename := ingest.SanitizeFilename(filepath.Base(path))
			if err := cfg.Upload.Policy().Validate(filename, int64(len(data))); err != nil {
				return err
			}
			text, err := ingest.Extract(filename, data)
			if err != nil {
				return err
			}

			ctx := context.Background()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			orch, err := buildPipeline(ctx, cfg, st)
			if err != nil {
				return err
			}

			opts := pipeline.DefaultOptions()
			opts.Filename = filename
			opts.GenerateCode = !stepsOnly
			opts.GenerateSteps = !codeOnly

			res, err := orch.Process(ctx, text, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.ContentHash != "" {
				fmt.Fprintf(out, "Content hash: %s\n", res.ContentHash)
			}
			if res.Message != "" {
				fmt.Fprintf(out, "Status:       %s\n", res.Message)
			}
			if !codeOnly {
				fmt.Fprintf(out, "\n== Steps ==\n%s\n", res.Steps)
			}
			if res.Code != nil {
				fmt.Fprintf(out, "\n== Code ==\n%s\n", *res.Code)
			}
			if res.Error != nil {
				return fmt.Errorf("%s stage failed: %s", res.Error.Stage, res.Error.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stepsOnly, "steps-only", false, "stop after generating steps")
	cmd.Flags().BoolVar(&codeOnly, "code-only", false, "treat the file as steps and only generate code")
	return cmd
}
