// Package cmd is the command-line surface: the API server plus one-shot
// commands that run the same services from a terminal.
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/logging"
)

var (
	cfgFile string
	version = "dev"
)

// Execute runs the root command. v is the build version.
func Execute(v string) error {
	version = v
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ia-dental",
		Short: "Clinic BI and data-quality engine",
		Long: `ia-dental answers natural-language questions about the clinic database,
runs the scheduled integrity checks and scores patients and treatments.

Configuration precedence (highest to lowest):
  1. Environment variables (and a .env file in the working directory)
  2. Config file (config.yaml or --config)
  3. Built-in defaults`,
		Version:      version,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultPath+")")

	rootCmd.AddCommand(
		newServeCmd(),
		newQueryCmd(),
		newIntegrityCmd(),
		newAnalyticsCmd(),
		newJobsCmd(),
		newHealthCmd(),
		newMigrateCmd(),
		newTokenCmd(),
	)
	return rootCmd
}

// loadRuntime reads .env, the configuration and builds the logger.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile, version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
