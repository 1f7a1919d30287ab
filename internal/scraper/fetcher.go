package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FranksOps/qaharvest/internal/bypass"
	"github.com/FranksOps/qaharvest/pkg/httpclient"
	"github.com/FranksOps/qaharvest/pkg/useragent"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// FetchConfig configures the HTTP fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	Fingerprint  httpclient.Fingerprint
	// UserAgent pins a single User-Agent. When empty, UAPool is rotated.
	UserAgent string
	UAPool    *useragent.Pool
	// InsecureSkipVerify is for tests against self-signed servers.
	InsecureSkipVerify bool
}

// Page is a fetched HTTP response.
type Page struct {
	URL        string // final URL after redirects
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Response adapts the page for bot challenge detection.
func (p *Page) Response() *bypass.Response {
	return &bypass.Response{StatusCode: p.StatusCode, Headers: p.Headers, Body: p.Body, URL: p.URL}
}

// Fetcher performs single URL fetches with a fingerprinted TLS stack and
// browser-like headers.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher initializes a new Fetcher. One client is held for the lifetime
// of the Fetcher so connections and cookies (if enabled) are reused.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = httpclient.FingerprintChrome
	}
	if cfg.UAPool == nil {
		cfg.UAPool = poolFor(cfg.Fingerprint)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:            cfg.Timeout,
		MaxRedirects:       cfg.MaxRedirects,
		UseCookieJar:       cfg.UseCookieJar,
		Fingerprint:        cfg.Fingerprint,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// poolFor keeps the claimed browser consistent with the TLS hello.
func poolFor(fp httpclient.Fingerprint) *useragent.Pool {
	switch fp {
	case httpclient.FingerprintChrome:
		return useragent.ForFamily(useragent.Chrome, nil)
	case httpclient.FingerprintFirefox:
		return useragent.ForFamily(useragent.Firefox, nil)
	case httpclient.FingerprintSafari:
		return useragent.ForFamily(useragent.Safari, nil)
	}
	return useragent.NewPool(nil)
}

// userAgent returns the User-Agent the next request will carry.
func (f *Fetcher) userAgent() string {
	if f.config.UserAgent != "" {
		return f.config.UserAgent
	}
	return f.config.UAPool.Next()
}

// Fetch executes a GET request. Any HTTP status is returned as a Page; only
// transport failures produce an error.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", targetURL, err)
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}
