package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/qaharvest/internal/report"
	"github.com/FranksOps/qaharvest/internal/storage"
	"github.com/FranksOps/qaharvest/internal/storage/audit"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newReportCmd())
}

func newReportCmd() *cobra.Command {
	var (
		dsn    string
		runID  string
		status string
		since  time.Duration
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize visits recorded in an audit store",
		Example: `  qaharvest report --audit visits.db
  qaharvest report --audit visits.csv --since 24h --format json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return errors.New("--audit is required")
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			filter := storage.Filter{
				RunID:  runID,
				Status: storage.Status(status),
				Limit:  limit,
			}
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}

			ctx := cmd.Context()
			b, err := audit.Open(ctx, dsn)
			if err != nil {
				return err
			}
			defer b.Close()

			visits, err := b.Query(ctx, filter)
			if err != nil {
				return fmt.Errorf("query %s: %w", dsn, err)
			}
			return report.Write(cmd.OutOrStdout(), f, report.GenerateSummary(visits))
		},
	}

	cmd.Flags().StringVar(&dsn, "audit", "", "audit store to read (visits.db, visits.csv, postgres://...)")
	cmd.Flags().StringVar(&runID, "run-id", "", "only visits of this run")
	cmd.Flags().StringVar(&status, "status", "", "only visits with this status: ok, failed, blocked or skipped")
	cmd.Flags().DurationVar(&since, "since", 0, "only visits newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum visits to include, newest first (0 = all)")
	cmd.Flags().StringVar(&format, "format", string(report.FormatText), "output format: text, json or html")

	return cmd
}
