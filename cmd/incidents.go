package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innoventors/incident-cli/internal/export"
	"github.com/innoventors/incident-cli/internal/model"
	"github.com/innoventors/incident-cli/internal/store"
)

var (
	incidentsSeverity string
	incidentsCategory string
	incidentsFile     string
	incidentsSearch   string
	incidentsLimit    int
	incidentsOffset   int
	incidentsJSON     bool

	exportFormat string
	exportOut    string
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Inspect stored incidents",
}

func incidentsFilter() store.IncidentFilter {
	f := store.IncidentFilter{
		Category: incidentsCategory,
		File:     incidentsFile,
		Search:   incidentsSearch,
		Limit:    incidentsLimit,
		Offset:   incidentsOffset,
	}
	if incidentsSeverity != "" {
		f.Severity = model.ParseSeverity(incidentsSeverity)
	}
	return f
}

var incidentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analyzed incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("incidents"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		views, err := st.ListIncidents(ctx, incidentsFilter())
		if err != nil {
			return err
		}

		if incidentsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(views)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CASE\tFILE\tSEVERITY\tCATEGORY\tROOT CAUSE")
		for _, v := range views {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				v.CaseName, v.File, v.Severity, v.Category, truncate(v.RootCause, 60))
		}
		return w.Flush()
	},
}

var incidentsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard aggregates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("incidents"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var incidentsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export incidents to an XLSX or CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("incidents"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		views, err := st.ListIncidents(ctx, incidentsFilter())
		if err != nil {
			return err
		}

		out := exportOut
		switch strings.ToLower(exportFormat) {
		case "xlsx":
			if out == "" {
				out = "incidents.xlsx"
			}
			err = export.WriteXLSX(out, views)
		case "csv":
			if out == "" {
				out = "incidents.csv"
			}
			err = export.WriteCSVFile(out, views)
		default:
			return eris.Errorf("unsupported export format: %s", exportFormat)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("path", out),
			zap.Int("incidents", len(views)),
		)
		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&incidentsSeverity, "severity", "", "filter by severity (Low, Medium, High, Unknown)")
	cmd.Flags().StringVar(&incidentsCategory, "category", "", "filter by category")
	cmd.Flags().StringVar(&incidentsFile, "file", "", "filter by source filename")
	cmd.Flags().StringVar(&incidentsSearch, "search", "", "search case names, summaries, and root causes")
	cmd.Flags().IntVar(&incidentsLimit, "limit", 0, "maximum rows to return (default 100)")
	cmd.Flags().IntVar(&incidentsOffset, "offset", 0, "rows to skip")
}

func init() {
	addFilterFlags(incidentsListCmd)
	incidentsListCmd.Flags().BoolVar(&incidentsJSON, "json", false, "print JSON instead of a table")

	addFilterFlags(incidentsExportCmd)
	incidentsExportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "export format: xlsx or csv")
	incidentsExportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default incidents.<format>)")

	incidentsCmd.AddCommand(incidentsListCmd)
	incidentsCmd.AddCommand(incidentsStatsCmd)
	incidentsCmd.AddCommand(incidentsExportCmd)
	rootCmd.AddCommand(incidentsCmd)
}
