package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/researchrender/researchrender/pkg/config"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

const defaultConfigPath = "researchrender.yaml"

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "researchrender",
		Short:         "Turn research papers into implementation steps and code",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")

	root.AddCommand(
		newServeCmd(),
		newProcessCmd(),
		newCacheCmd(),
		newPapersCmd(),
		newStatsCmd(),
		newBudgetCmd(),
		newMCPCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and installs the logger. A missing
// default config file means built-in defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(&cfg.Log)
	return cfg, nil
}
