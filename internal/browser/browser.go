// Package browser owns a single chromedp browser process and the tabs opened
// in it. Every tab and the browser itself must be closed by whoever opened
// them; Close is safe to call more than once.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// Config holds configuration for launching or attaching to Chrome.
type Config struct {
	// RemoteURL is a CDP websocket endpoint. Empty launches a local browser.
	RemoteURL string
	Headless  bool
	// ExecPath overrides the Chrome binary lookup.
	ExecPath  string
	UserAgent string
	// StartTimeout bounds how long the first connection may take.
	StartTimeout time.Duration
}

// Chrome is a running browser.
type Chrome struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	userAgent     string
	remote        bool
	logger        *slog.Logger
	once          sync.Once
}

// Launch starts (or attaches to) a browser bound to ctx. Canceling ctx tears
// the browser down as well.
func Launch(ctx context.Context, cfg Config, logger *slog.Logger) (*Chrome, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 30 * time.Second
	}

	c := &Chrome{
		userAgent: cfg.UserAgent,
		remote:    cfg.RemoteURL != "",
		logger:    logger,
	}

	var allocCtx context.Context
	if cfg.RemoteURL != "" {
		allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
		logger.Info("connecting to remote browser", "url", cfg.RemoteURL)
	} else {
		opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
		copy(opts, chromedp.DefaultExecAllocatorOptions[:])
		opts = append(opts,
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1366, 900),
		)
		if cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
		}
		if cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
		}
		allocCtx, c.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
		logger.Info("launching local browser", "headless", cfg.Headless)
	}

	c.browserCtx, c.browserCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	// The first Run binds the browser to browserCtx, so it cannot be given a
	// derived timeout context. The timeout is enforced from the outside.
	startDone := make(chan error, 1)
	go func() { startDone <- chromedp.Run(c.browserCtx) }()
	select {
	case err := <-startDone:
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-time.After(cfg.StartTimeout):
		c.Close()
		return nil, fmt.Errorf("start browser: timed out after %v", cfg.StartTimeout)
	case <-ctx.Done():
		c.Close()
		return nil, fmt.Errorf("start browser: %w", ctx.Err())
	}

	logger.Info("browser started")
	return c, nil
}

// NewTab opens an isolated tab. The caller must Close it.
func (c *Chrome) NewTab(ctx context.Context) (*Tab, error) {
	if c.browserCtx.Err() != nil {
		return nil, errors.New("browser is closed")
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	t := &Tab{ctx: tabCtx, cancel: cancel}

	var setup []chromedp.Action
	if c.remote && c.userAgent != "" {
		setup = append(setup, emulation.SetUserAgentOverride(c.userAgent))
	}

	// Same constraint as in Launch: the tab target is created by this Run.
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx, setup...) }()
	select {
	case err := <-done:
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("open tab: %w", err)
		}
	case <-ctx.Done():
		t.Close()
		return nil, fmt.Errorf("open tab: %w", ctx.Err())
	}
	return t, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() {
	c.once.Do(func() {
		if c.browserCancel != nil {
			c.browserCancel()
		}
		if c.allocCancel != nil {
			c.allocCancel()
		}
		c.logger.Debug("browser closed")
	})
}

// Tab is one browser tab.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Run executes actions in the tab. They are aborted when ctx is canceled or
// when timeout (if positive) elapses, whichever comes first.
func (t *Tab) Run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(t.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(t.ctx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %v: %w", timeout, context.DeadlineExceeded)
	}
	return err
}

// Close closes the tab.
func (t *Tab) Close() {
	t.once.Do(t.cancel)
}
