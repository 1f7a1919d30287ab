package serp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/FranksOps/qaharvest/internal/bypass"
	"github.com/FranksOps/qaharvest/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

// HTTPGoogle reads Google result pages over plain HTTP. There is no script
// execution, so Scroll does nothing.
type HTTPGoogle struct {
	fetcher   *scraper.Fetcher
	searchURL string
	logger    *slog.Logger

	page *scraper.Page
	doc  *goquery.Document
}

// NewHTTPGoogle returns a driver querying searchURL (DefaultSearchURL when
// empty) through fetcher.
func NewHTTPGoogle(fetcher *scraper.Fetcher, searchURL string, logger *slog.Logger) *HTTPGoogle {
	if logger == nil {
		logger = slog.Default()
	}
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return &HTTPGoogle{fetcher: fetcher, searchURL: searchURL, logger: logger}
}

// searchEndpoint builds the results URL for query. A bare host gets the
// /search path.
func searchEndpoint(base, query string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/search"
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (g *HTTPGoogle) Open(ctx context.Context, query string) error {
	target, err := searchEndpoint(g.searchURL, query)
	if err != nil {
		return err
	}
	return g.load(ctx, target)
}

func (g *HTTPGoogle) load(ctx context.Context, target string) error {
	page, err := g.fetcher.Fetch(ctx, target)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", target, err)
	}
	if detected, src := bypass.Analyze(page.Response(), bypass.DefaultDetectors()); detected {
		return fmt.Errorf("%w (%s)", ErrChallenged, src)
	}
	if page.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: http status %d", ErrNoResultsContainer, page.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return fmt.Errorf("parse results page: %w", err)
	}
	if doc.Find(resultsContainer).Length() == 0 {
		return ErrNoResultsContainer
	}

	g.page, g.doc = page, doc
	g.logger.Debug("results page loaded", "url", page.URL, "bytes", len(page.Body))
	return nil
}

func (g *HTTPGoogle) Scroll(ctx context.Context) error { return nil }

func (g *HTTPGoogle) Links(ctx context.Context) ([]string, error) {
	if g.page == nil {
		return nil, errNotOpen
	}
	return ResultLinks(g.page.URL, string(g.page.Body))
}

func (g *HTTPGoogle) Next(ctx context.Context) (bool, error) {
	if g.doc == nil {
		return false, errNotOpen
	}
	href, ok := g.doc.Find(nextPageLink).Attr("href")
	if !ok || href == "" {
		return false, nil
	}

	base, err := url.Parse(g.page.URL)
	if err != nil {
		return false, fmt.Errorf("parse page url: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return false, fmt.Errorf("parse next page link: %w", err)
	}
	if err := g.load(ctx, base.ResolveReference(ref).String()); err != nil {
		return false, err
	}
	return true, nil
}

func (g *HTTPGoogle) Close() error {
	g.page, g.doc = nil, nil
	return nil
}
