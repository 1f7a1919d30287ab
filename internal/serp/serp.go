// Package serp collects organic result links from a search engine.
package serp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/qaharvest/internal/metrics"
)

var (
	// ErrNoResultsContainer means the results page never showed its results
	// container. The search cannot continue.
	ErrNoResultsContainer = errors.New("search results container not found")
	// ErrChallenged means the engine answered with a bot challenge instead
	// of results.
	ErrChallenged = errors.New("search engine challenged the request")

	errNotOpen = errors.New("search not opened")
)

// Provider abstracts a search engine that returns result URLs for a query.
// limit caps the number of URLs returned; 0 means no cap.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Driver is one engine session: a results page that can be scrolled, read
// and advanced.
type Driver interface {
	// Open submits query and waits for the first results page.
	Open(ctx context.Context, query string) error
	// Scroll loads lazily rendered results on the current page.
	Scroll(ctx context.Context) error
	// Links returns the organic result links of the current page.
	Links(ctx context.Context) ([]string, error)
	// Next moves to the following results page. It reports false when
	// there is none.
	Next(ctx context.Context) (bool, error)
	Close() error
}

// CollectorConfig bounds a search.
type CollectorConfig struct {
	MaxPages int
	// Settle is a pause on every results page before it is scrolled.
	Settle time.Duration
}

// Collector implements Provider on top of a Driver.
type Collector struct {
	driver Driver
	cfg    CollectorConfig
	logger *slog.Logger
}

// NewCollector returns a Collector paging through at most cfg.MaxPages
// result pages (at least one).
func NewCollector(driver Driver, cfg CollectorConfig, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	return &Collector{driver: driver, cfg: cfg, logger: logger}
}

// Search collects distinct result links in the order first seen. Failing to
// reach a results page is fatal; a failed scroll or link read only costs
// that page's links.
func (c *Collector) Search(ctx context.Context, query string, limit int) ([]string, error) {
	c.logger.Info("searching", "query", query, "max_pages", c.cfg.MaxPages)

	if err := c.driver.Open(ctx, query); err != nil {
		return nil, fmt.Errorf("open search: %w", err)
	}

	set := NewLinkSet()
	for page := 1; ; page++ {
		if err := sleep(ctx, c.cfg.Settle); err != nil {
			return nil, err
		}

		if err := c.driver.Scroll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("scroll failed", "page", page, "err", err)
		}

		links, err := c.driver.Links(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("reading result links failed", "page", page, "err", err)
		}
		added := set.Add(links...)
		metrics.SERPPagesTotal.Inc()
		metrics.SERPLinksTotal.Add(float64(added))
		c.logger.Info("results page read", "page", page, "links", len(links), "new", added, "total", set.Len())

		if page >= c.cfg.MaxPages || (limit > 0 && set.Len() >= limit) {
			break
		}

		ok, err := c.driver.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("results page %d: %w", page+1, err)
		}
		if !ok {
			c.logger.Info("no further results pages", "page", page)
			break
		}
	}

	return set.Links(limit), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
