package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request is one outbound listing fetch.
type Request struct {
	URL     *url.URL
	Method  string
	Headers http.Header
	Body    []byte

	// ProxyURL routes the request through a forward proxy when non-empty.
	ProxyURL string

	// Timeout overrides the fetcher's default timeout for this request.
	Timeout time.Duration

	// Period is the listing window this request is scoped to, if any.
	Period Period

	CreatedAt time.Time
}

// NewRequest creates a GET Request for rawURL.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	return &Request{
		URL:       u,
		Method:    http.MethodGet,
		Headers:   make(http.Header),
		CreatedAt: time.Now(),
	}, nil
}

// URLString returns the request URL, or "" when unset.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
