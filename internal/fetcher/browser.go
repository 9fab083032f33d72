package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/gh-trending/internal/config"
	"github.com/IshaanNene/gh-trending/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// Chromium is launched on the first fetch and relaunched when the
// requested proxy changes, since a proxy is fixed at launch time.
type BrowserFetcher struct {
	cfg    *config.Config
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	proxy   string
}

// NewBrowserFetcher creates a new headless browser fetcher.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		cfg:    cfg,
		logger: logger.With("component", "browser_fetcher"),
	}
}

// ensureBrowser returns a connected browser routed through proxyURL.
// Callers must hold bf.mu.
func (bf *BrowserFetcher) ensureBrowser(proxyURL string) (*rod.Browser, error) {
	if bf.browser != nil && bf.proxy == proxyURL {
		return bf.browser, nil
	}
	if bf.browser != nil {
		_ = bf.browser.Close()
		bf.browser = nil
	}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if proxyURL != "" {
		if _, err := ParseProxyURL(proxyURL); err != nil {
			return nil, err
		}
		l = l.Proxy(proxyURL)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf.browser = browser
	bf.proxy = proxyURL
	bf.logger.Info("browser launched", "stealth", bf.cfg.Fetcher.BrowserStealth, "proxied", proxyURL != "")
	return browser, nil
}

func (bf *BrowserFetcher) newPage(browser *rod.Browser) (*rod.Page, error) {
	if bf.cfg.Fetcher.BrowserStealth {
		return stealth.Page(browser)
	}
	return browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Fetch navigates to a URL and returns the rendered page content.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	start := time.Now()

	browser, err := bf.ensureBrowser(req.ProxyURL)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	page, err := bf.newPage(browser)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: fmt.Errorf("open page: %w", err)}
	}
	defer page.Close()
	page = page.Context(ctx)

	ua := req.Headers.Get("User-Agent")
	if ua == "" {
		ua = bf.cfg.Source.UserAgent
	}
	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: req.Headers.Get("Accept-Language"),
	})
	if err != nil {
		bf.logger.Warn("failed to set user agent", "error", err)
	}

	headers := make([]string, 0, len(req.Headers)*2)
	for k, vals := range req.Headers {
		// The browser negotiates these itself.
		if k == "User-Agent" || k == "Accept-Encoding" {
			continue
		}
		for _, v := range vals {
			headers = append(headers, k, v)
		}
	}
	if len(headers) > 0 {
		_, _ = page.SetExtraHeaders(headers)
	}

	timeout := bf.cfg.Source.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	if err := page.Timeout(timeout).Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	if err := page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	// Rod does not surface the document status; a rendered page is taken as 200.
	return types.NewBrowserResponse(req, 200, []byte(html), finalURL, duration), nil
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	if bf.browser == nil {
		return nil
	}
	err := bf.browser.Close()
	bf.browser = nil
	return err
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
