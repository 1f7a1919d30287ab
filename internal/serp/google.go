package serp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/qaharvest/internal/browser"
	"github.com/FranksOps/qaharvest/internal/bypass"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// DefaultSearchURL is the engine home page the query is typed into.
const DefaultSearchURL = "https://www.google.com"

const (
	searchBox        = `textarea[name='q']`
	resultsContainer = `div#search`
	nextPageLink     = `a#pnnext`
)

// autoScroll scrolls 500px every 200ms until the scrolled distance reaches
// the document height, resolving once done.
const autoScroll = `new Promise((resolve) => {
	let total = 0;
	const distance = 500;
	const timer = setInterval(() => {
		window.scrollBy(0, distance);
		total += distance;
		if (total >= document.body.scrollHeight) {
			clearInterval(timer);
			resolve(true);
		}
	}, 200);
})`

const nextPageHref = `(() => {
	const a = document.querySelector("` + nextPageLink + `");
	return a ? a.href : "";
})()`

// GoogleConfig configures the browser-driven Google session.
type GoogleConfig struct {
	SearchURL string
	// NavTimeout bounds loading the search page and following pagination.
	NavTimeout time.Duration
	// ResultsTimeout bounds the wait for the results container.
	ResultsTimeout time.Duration
}

// Google drives a Google search in a browser tab.
type Google struct {
	chrome *browser.Chrome
	cfg    GoogleConfig
	tab    *browser.Tab
	logger *slog.Logger
}

// NewGoogle returns a driver that opens its tab in chrome.
func NewGoogle(chrome *browser.Chrome, cfg GoogleConfig, logger *slog.Logger) *Google {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.ResultsTimeout <= 0 {
		cfg.ResultsTimeout = 20 * time.Second
	}
	return &Google{chrome: chrome, cfg: cfg, logger: logger}
}

func (g *Google) Open(ctx context.Context, query string) error {
	_ = g.Close()

	tab, err := g.chrome.NewTab(ctx)
	if err != nil {
		return err
	}
	g.tab = tab

	err = tab.Run(ctx, g.cfg.NavTimeout,
		chromedp.Navigate(g.cfg.SearchURL),
		chromedp.WaitVisible(searchBox, chromedp.ByQuery),
		chromedp.SendKeys(searchBox, query+kb.Enter, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if src := g.challenge(ctx); src != "" {
			return fmt.Errorf("%w (%s)", ErrChallenged, src)
		}
		return fmt.Errorf("submit query: %w", err)
	}
	return g.waitResults(ctx)
}

func (g *Google) waitResults(ctx context.Context) error {
	err := g.tab.Run(ctx, g.cfg.ResultsTimeout, chromedp.WaitVisible(resultsContainer, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if src := g.challenge(ctx); src != "" {
		return fmt.Errorf("%w (%s)", ErrChallenged, src)
	}
	return fmt.Errorf("%w: %v", ErrNoResultsContainer, err)
}

// challenge names the bot protection shown in the tab, if any.
func (g *Google) challenge(ctx context.Context) string {
	var loc, text string
	err := g.tab.Run(ctx, 5*time.Second,
		chromedp.Location(&loc),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)
	if err != nil {
		return ""
	}
	_, src := bypass.Analyze(&bypass.Response{URL: loc, Body: []byte(text)}, bypass.DefaultDetectors())
	return src
}

func (g *Google) Scroll(ctx context.Context) error {
	if g.tab == nil {
		return errNotOpen
	}
	var done bool
	return g.tab.Run(ctx, g.cfg.NavTimeout,
		chromedp.Evaluate(autoScroll, &done, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
}

func (g *Google) Links(ctx context.Context) ([]string, error) {
	if g.tab == nil {
		return nil, errNotOpen
	}
	var loc, html string
	err := g.tab.Run(ctx, 10*time.Second,
		chromedp.Location(&loc),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("read results page: %w", err)
	}
	return ResultLinks(loc, html)
}

// Next follows the next-page link rather than clicking it, so the wait for
// the new results container cannot race the old page.
func (g *Google) Next(ctx context.Context) (bool, error) {
	if g.tab == nil {
		return false, errNotOpen
	}
	var href string
	if err := g.tab.Run(ctx, 5*time.Second, chromedp.Evaluate(nextPageHref, &href)); err != nil {
		return false, fmt.Errorf("find next page: %w", err)
	}
	if href == "" {
		return false, nil
	}

	if err := g.tab.Run(ctx, g.cfg.NavTimeout, chromedp.Navigate(href)); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("navigate to next page: %w", err)
	}
	if err := g.waitResults(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (g *Google) Close() error {
	if g.tab != nil {
		g.tab.Close()
		g.tab = nil
	}
	return nil
}
