package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innoventors/incident-cli/internal/ocr"
)

var analyzeDryRun bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze an incident report document",
	Long:  "Extracts text from a PDF or plain-text incident report, splits it into per-incident sections, runs root-cause analysis on each, and stores the results.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		env, err := initPipeline(ctx, !analyzeDryRun)
		if err != nil {
			return err
		}
		defer env.Close()

		text, err := ocr.ReadDocument(ctx, env.Extractor, path)
		if err != nil {
			return err
		}

		upload, result, err := env.Pipeline.Ingest(ctx, filepath.Base(path), text)
		if err != nil {
			return eris.Wrap(err, "analyze document")
		}

		fields := []zap.Field{
			zap.String("file", path),
			zap.Int("incidents", result.TotalIncidents),
			zap.Int("input_tokens", result.TokenUsage.InputTokens),
			zap.Int("output_tokens", result.TokenUsage.OutputTokens),
			zap.Float64("cost_usd", result.TokenUsage.Cost),
		}
		if upload != nil {
			fields = append(fields, zap.String("upload_id", upload.ID))
		}
		zap.L().Info("analysis complete", fields...)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "run the analysis without persisting results")
	rootCmd.AddCommand(analyzeCmd)
}
