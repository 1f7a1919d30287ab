package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor fetches, caches and enforces robots.txt per origin.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates a new instance.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether targetURL may be visited by userAgent. A missing
// or unreadable robots.txt allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}
	if userAgent == "" {
		userAgent = "*"
	}

	origin := u.Scheme + "://" + u.Host

	data, err := r.get(ctx, origin)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing", "origin", origin, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.FindGroup(userAgent).Test(path), nil
}

func (r *RobotsTxtAuditor) get(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[origin]; ok {
		return data, nil
	}

	page, err := r.fetcher.Fetch(ctx, origin+"/robots.txt")
	if err != nil {
		// A canceled run should not poison the cache.
		if ctx.Err() == nil {
			r.cache[origin] = nil
		}
		return nil, err
	}

	// robotstxt maps 4xx to allow-all and 5xx to disallow-all.
	data, err := robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
	if err != nil {
		r.cache[origin] = nil
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.cache[origin] = data
	return data, nil
}
