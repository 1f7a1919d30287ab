package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/FranksOps/qaharvest/internal/bypass"
	"github.com/FranksOps/qaharvest/internal/metrics"
	"github.com/FranksOps/qaharvest/internal/qa"
	"github.com/FranksOps/qaharvest/internal/storage"
	"github.com/FranksOps/qaharvest/pkg/ratelimit"
	"github.com/google/uuid"
)

// HarvestConfig provides parameters for the Harvester.
type HarvestConfig struct {
	RunID   string
	Variant qa.Variant
	// Backend, when set, receives every visit.
	Backend storage.Backend
	// RespectRobots checks robots.txt through Robots before each visit.
	RespectRobots bool
	Robots        *RobotsTxtAuditor
	// UserAgent is the agent name matched against robots.txt groups.
	UserAgent string
	// RequestsPerSecond limits the visit rate (0 = unlimited)
	RequestsPerSecond float64
	// Jitter applies randomness to the rate limiter (0.0 to 1.0)
	Jitter float64
	// Detectors recognize bot challenge pages. Nil means the defaults.
	Detectors []bypass.Detector
}

// Result is the outcome of one URL.
type Result struct {
	Visit   *storage.Visit
	Records []qa.Record
}

// Harvester visits result pages one at a time and extracts records from
// their text.
type Harvester struct {
	cfg     HarvestConfig
	source  PageSource
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewHarvester creates a harvester reading pages from source.
func NewHarvester(cfg HarvestConfig, source PageSource, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}
	if cfg.Variant == "" {
		cfg.Variant = qa.VariantPairs
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if cfg.RespectRobots && cfg.Robots == nil {
		logger.Warn("robots.txt checks requested without an auditor, disabling")
		cfg.RespectRobots = false
	}

	return &Harvester{
		cfg:     cfg,
		source:  source,
		limiter: ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Jitter),
		logger:  logger,
	}
}

// Run visits urls in order and returns one Result per visited URL. A page
// that fails is logged and recorded, and the loop moves on. Only
// cancellation of ctx stops the run early; the results gathered so far are
// returned with ctx's error.
func (h *Harvester) Run(ctx context.Context, urls []string) ([]Result, error) {
	results := make([]Result, 0, len(urls))

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		h.logger.Info("visiting", "url", u, "n", i+1, "of", len(urls))
		res := h.visit(ctx, u)
		if res == nil {
			return results, ctx.Err()
		}

		if h.cfg.Backend != nil {
			if err := h.cfg.Backend.Save(ctx, res.Visit); err != nil {
				h.logger.Error("failed to save visit", "url", u, "err", err)
			}
		}
		metrics.RecordVisit(res.Visit)
		metrics.RecordRecords(string(h.cfg.Variant), len(res.Records))

		results = append(results, *res)
	}
	return results, nil
}

// visit returns nil only when ctx was canceled mid-visit.
func (h *Harvester) visit(ctx context.Context, u string) *Result {
	v := &storage.Visit{
		ID:        uuid.New().String(),
		RunID:     h.cfg.RunID,
		URL:       u,
		CreatedAt: time.Now().UTC(),
	}

	if h.cfg.RespectRobots {
		allowed, err := h.cfg.Robots.IsAllowed(ctx, u, h.cfg.UserAgent)
		if err != nil {
			h.logger.Warn("error checking robots.txt", "url", u, "err", err)
		} else if !allowed {
			h.logger.Info("url disallowed by robots.txt", "url", u)
			v.Status = storage.StatusSkipped
			v.Error = "disallowed by robots.txt"
			return &Result{Visit: v}
		}
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return nil
	}

	start := time.Now()
	text, err := h.source.PageText(ctx, u)
	v.Duration = time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		v.Status = storage.StatusFailed
		v.Error = err.Error()

		var se *StatusError
		if errors.As(err, &se) {
			v.DetectedBot, v.DetectionSrc = bypass.Analyze(se.Response, h.cfg.Detectors)
			if v.DetectedBot {
				v.Status = storage.StatusBlocked
			}
		}
		h.logger.Warn("failed to read page", "url", u, "err", err, "detected", v.DetectionSrc)
		return &Result{Visit: v}
	}

	v.TextLength = len(text)
	if detected, src := bypass.Analyze(&bypass.Response{URL: u, Body: []byte(text)}, h.cfg.Detectors); detected {
		v.Status = storage.StatusBlocked
		v.DetectedBot = true
		v.DetectionSrc = src
		v.Error = "bot challenge page"
		h.logger.Warn("challenged", "url", u, "source", src)
		return &Result{Visit: v}
	}

	records := h.cfg.Variant.Extract(text, u)
	v.Status = storage.StatusOK
	v.Records = len(records)
	h.logger.Info("extracted", "url", u, "records", len(records), "text_bytes", len(text), "duration", v.Duration)

	return &Result{Visit: v, Records: records}
}
