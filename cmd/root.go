package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innoventors/incident-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "incident-cli",
	Short: "Incident report ingestion and root-cause analysis",
	Long:  "Ingests incident report documents, splits them into per-incident sections, runs Claude root-cause analysis on each, and persists the structured results for the dashboard.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
