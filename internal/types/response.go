package types

import (
	"net/http"
	"time"
)

// Response is a fetched listing page.
type Response struct {
	StatusCode int
	Headers    http.Header

	// Body is already decompressed.
	Body []byte

	Request  *Request
	FinalURL string

	FetchDuration time.Duration
	FetchedAt     time.Time
}

// NewResponse wraps an HTTP response whose body has been read and decoded.
func NewResponse(req *Request, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	return &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		Request:       req,
		FinalURL:      httpResp.Request.URL.String(),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// NewBrowserResponse wraps HTML captured from a rendered page.
func NewBrowserResponse(req *Request, statusCode int, body []byte, finalURL string, duration time.Duration) *Response {
	return &Response{
		StatusCode:    statusCode,
		Headers:       http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:          body,
		Request:       req,
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}
