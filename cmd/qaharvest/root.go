package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/qaharvest/internal/browser"
	"github.com/FranksOps/qaharvest/internal/config"
	"github.com/FranksOps/qaharvest/internal/export"
	"github.com/FranksOps/qaharvest/internal/logger"
	"github.com/FranksOps/qaharvest/internal/metrics"
	"github.com/FranksOps/qaharvest/internal/pipeline"
	"github.com/FranksOps/qaharvest/internal/report"
	"github.com/FranksOps/qaharvest/internal/scraper"
	"github.com/FranksOps/qaharvest/internal/serp"
	"github.com/FranksOps/qaharvest/internal/storage"
	"github.com/FranksOps/qaharvest/internal/storage/audit"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qaharvest [query]",
		Short: "Collect interview questions and answers from web search results",
		Long: `qaharvest searches the web for a query, visits the result pages and
extracts question/answer pairs (or bare questions) into an xlsx workbook.

Every flag can also be set through a QAHARVEST_* environment variable or a
config file passed with --config.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runHarvest,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// Execute runs the command line with SIGINT and SIGTERM canceling the run.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := config.Load(v, args)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogOutput)
	if err != nil {
		return err
	}
	defer closeLog()

	res, err := harvest(cmd.Context(), cfg, log)
	if res != nil && len(res.Visits) > 0 {
		if werr := report.Write(cmd.ErrOrStderr(), cfg.ReportFormat, report.GenerateSummary(res.Visits)); werr != nil {
			log.Warn("failed to write summary", "err", werr)
		}
	}

	switch {
	case errors.Is(err, export.ErrNoRecords):
		fmt.Fprintln(cmd.OutOrStdout(), "No Q&A found.")
		return nil
	case err != nil:
		log.Error("run failed", "err", err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d records to %s\n", len(res.Records), res.Output)
	return nil
}

// harvest assembles the engine named by cfg and runs the pipeline. The
// browser, if one was launched, is closed before it returns.
func harvest(ctx context.Context, cfg config.Config, log *slog.Logger) (*pipeline.Result, error) {
	if cfg.MetricsPort > 0 {
		srv := metrics.Start(cfg.MetricsPort, log)
		defer srv.Stop(context.Background())
	}

	var backend storage.Backend
	if cfg.Audit != "" {
		b, err := audit.Open(ctx, cfg.Audit)
		if err != nil {
			return nil, err
		}
		defer b.Close()
		backend = b
	}

	var fetcher *scraper.Fetcher
	if cfg.Engine == config.EngineHTTP || cfg.RespectRobots {
		f, err := scraper.NewFetcher(scraper.FetchConfig{
			Timeout:      cfg.NavTimeout,
			UseCookieJar: true,
			Fingerprint:  cfg.Fingerprint,
			UserAgent:    cfg.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		fetcher = f
	}

	var (
		driver serp.Driver
		source scraper.PageSource
	)
	switch cfg.Engine {
	case config.EngineChrome:
		chrome, err := browser.Launch(ctx, browser.Config{
			RemoteURL: cfg.RemoteURL,
			Headless:  cfg.Headless,
			ExecPath:  cfg.ChromePath,
			UserAgent: cfg.UserAgent,
		}, log)
		if err != nil {
			return nil, err
		}
		defer chrome.Close()

		driver = serp.NewGoogle(chrome, serp.GoogleConfig{
			SearchURL:  cfg.SearchURL,
			NavTimeout: cfg.NavTimeout,
		}, log)
		source = scraper.NewChromeSource(chrome, scraper.ChromeConfig{
			NavTimeout: cfg.NavTimeout,
			Settle:     cfg.Settle,
		}, log)
	case config.EngineHTTP:
		driver = serp.NewHTTPGoogle(fetcher, cfg.SearchURL, log)
		source = scraper.NewHTTPSource(fetcher)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
	defer driver.Close()

	var robots *scraper.RobotsTxtAuditor
	if cfg.RespectRobots {
		robots = scraper.NewRobotsTxtAuditor(fetcher, log)
	}

	runID := uuid.New().String()
	p := &pipeline.Pipeline{
		Provider: serp.NewCollector(driver, serp.CollectorConfig{
			MaxPages: cfg.MaxPages,
			Settle:   cfg.SearchSettle,
		}, log),
		Harvester: scraper.NewHarvester(scraper.HarvestConfig{
			RunID:             runID,
			Variant:           cfg.Variant,
			Backend:           backend,
			RespectRobots:     cfg.RespectRobots,
			Robots:            robots,
			UserAgent:         cfg.UserAgent,
			RequestsPerSecond: cfg.RPS,
			Jitter:            cfg.Jitter,
		}, source, log),
		Exporter: export.NewXLSX(cfg.Output, cfg.Sheet, cfg.Variant),
		MaxURLs:  cfg.MaxURLs,
		RunID:    runID,
		Logger:   log,
	}

	log.Info("starting run", "run_id", runID, "variant", cfg.Variant, "engine", cfg.Engine, "query", cfg.Query)
	return p.Run(ctx, cfg.Query)
}
