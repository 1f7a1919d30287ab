package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/qaharvest/internal/browser"
	"github.com/FranksOps/qaharvest/internal/bypass"
	"github.com/chromedp/chromedp"
)

// PageSource returns the visible text of a page.
type PageSource interface {
	PageText(ctx context.Context, url string) (string, error)
}

// StatusError is returned by HTTPSource for 4xx and 5xx responses. It keeps
// the response so challenge pages can still be recognized.
type StatusError struct {
	URL        string
	StatusCode int
	Response   *bypass.Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http status %d", e.URL, e.StatusCode)
}

// ChromeConfig tunes how ChromeSource loads pages.
type ChromeConfig struct {
	// NavTimeout bounds navigation plus readiness waits.
	NavTimeout time.Duration
	// Settle is an extra pause after the document reports complete, for
	// content rendered by late scripts.
	Settle time.Duration
}

// ChromeSource renders each page in a fresh tab of a shared browser.
type ChromeSource struct {
	chrome *browser.Chrome
	cfg    ChromeConfig
	logger *slog.Logger
}

// NewChromeSource returns a source rendering pages in chrome.
func NewChromeSource(chrome *browser.Chrome, cfg ChromeConfig, logger *slog.Logger) *ChromeSource {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	return &ChromeSource{chrome: chrome, cfg: cfg, logger: logger}
}

// PageText opens url in a new tab, waits for it to finish loading and returns
// document.body.innerText. The tab is closed on every path.
func (s *ChromeSource) PageText(ctx context.Context, url string) (string, error) {
	tab, err := s.chrome.NewTab(ctx)
	if err != nil {
		return "", err
	}
	defer tab.Close()

	var ready bool
	err = tab.Run(ctx, s.cfg.NavTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Poll(`document.readyState === "complete"`, &ready, chromedp.WithPollingInterval(100*time.Millisecond)),
	)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", url, err)
	}

	if err := sleep(ctx, s.cfg.Settle); err != nil {
		return "", err
	}

	var text string
	if err := tab.Run(ctx, 10*time.Second,
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	); err != nil {
		return "", fmt.Errorf("read text %s: %w", url, err)
	}
	return text, nil
}

// HTTPSource fetches pages over HTTP and approximates innerText from the
// markup. Scripts are not executed.
type HTTPSource struct {
	fetcher *Fetcher
}

// NewHTTPSource returns a source backed by fetcher.
func NewHTTPSource(fetcher *Fetcher) *HTTPSource {
	return &HTTPSource{fetcher: fetcher}
}

func (s *HTTPSource) PageText(ctx context.Context, url string) (string, error) {
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if page.StatusCode >= http.StatusBadRequest {
		return "", &StatusError{URL: url, StatusCode: page.StatusCode, Response: page.Response()}
	}

	mediaType := "text/html"
	if ct := page.Headers.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return VisibleText(page.Body)
	case strings.HasPrefix(mediaType, "text/"):
		return string(page.Body), nil
	}
	return "", fmt.Errorf("%s: unsupported content type %s", url, mediaType)
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
