package fetcher

import (
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/IshaanNene/gh-trending/internal/config"
)

// ProxyPool hands out one shared transport per forward proxy so the listing
// fetcher and the translation client reuse connections. The empty proxy
// means a direct connection.
type ProxyPool struct {
	cfg        *config.FetcherConfig
	transports map[string]*http.Transport
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewProxyPool creates an empty ProxyPool.
func NewProxyPool(cfg *config.FetcherConfig, logger *slog.Logger) *ProxyPool {
	return &ProxyPool{
		cfg:        cfg,
		transports: make(map[string]*http.Transport),
		logger:     logger.With("component", "proxy_pool"),
	}
}

// ParseProxyURL validates a forward proxy URL.
func ParseProxyURL(rawURL string) (*url.URL, error) {
	if err := config.ValidateProxyURL(rawURL); err != nil {
		return nil, err
	}
	return url.Parse(rawURL)
}

// Transport returns the transport for proxyURL, creating it on first use.
func (p *ProxyPool) Transport(proxyURL string) (*http.Transport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.transports[proxyURL]; ok {
		return t, nil
	}

	t := p.newTransport()
	if proxyURL != "" {
		u, err := ParseProxyURL(proxyURL)
		if err != nil {
			return nil, err
		}
		t.Proxy = http.ProxyURL(u)
		p.logger.Info("proxy transport created", "proxy", u.Host, "scheme", u.Scheme)
	}

	p.transports[proxyURL] = t
	return t, nil
}

// Client returns an http.Client over the transport for proxyURL.
func (p *ProxyPool) Client(proxyURL string, timeout time.Duration) (*http.Client, error) {
	t, err := p.Transport(proxyURL)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: t, Timeout: timeout}, nil
}

// Count returns the number of cached transports.
func (p *ProxyPool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.transports)
}

// CloseIdleConnections drops idle connections on every transport.
func (p *ProxyPool) CloseIdleConnections() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.transports {
		t.CloseIdleConnections()
	}
}

func (p *ProxyPool) newTransport() *http.Transport {
	maxIdle := p.cfg.MaxIdleConns
	if maxIdle < 2 {
		maxIdle = 2
	}
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        maxIdle,
		MaxIdleConnsPerHost: maxIdle / 2,
		IdleConnTimeout:     p.cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: p.cfg.TLSInsecure,
		},
		DisableCompression: true, // bodies are decoded by the fetcher, including brotli
	}
}
