package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/IshaanNene/gh-trending/internal/config"
	"github.com/IshaanNene/gh-trending/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New creates the fetcher selected by cfg.Fetcher.Type.
func New(cfg *config.Config, proxies *ProxyPool, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "http", "":
		return NewHTTPFetcher(cfg, proxies, logger)
	case "browser":
		return NewBrowserFetcher(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: fetcher %q", types.ErrUnsupportedEngine, cfg.Fetcher.Type)
	}
}

// ListingURL returns the trending listing URL for period under baseURL.
func ListingURL(baseURL string, period types.Period) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/trending")
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	q := u.Query()
	q.Set("since", period.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ListingRequest builds the GET request for one period's trending listing,
// dressed with the headers a desktop Chrome would send.
func ListingRequest(src *config.SourceConfig, period types.Period, proxyURL string) (*types.Request, error) {
	rawURL, err := ListingURL(src.BaseURL, period)
	if err != nil {
		return nil, err
	}
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}

	req.Period = period
	req.ProxyURL = proxyURL
	req.Timeout = src.RequestTimeout

	h := req.Headers
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Accept-Language", src.AcceptLanguage)
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Sec-Ch-Ua", `"Not(A:Brand";v="99", "Google Chrome";v="133", "Chromium";v="133"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("User-Agent", src.UserAgent)

	return req, nil
}
