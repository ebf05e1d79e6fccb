// Package httpclient provides the shared HTTP plumbing for talking to
// playlist providers: a tuned client, per-request timeouts, a single-retry
// policy for throttling and flaky upstreams, and a per-host concurrency cap.
package httpclient

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout suits the provider API calls; playlist downloads pass
	// their own longer timeout through WithTimeout.
	DefaultTimeout         = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second

	// MaxIdleConnsPerHost stays above the host semaphore cap so the limited
	// concurrent requests to one provider all reuse pooled connections.
	MaxIdleConnsPerHost = 16
)

var defaultClient = &http.Client{
	Timeout: DefaultTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	},
}

// Default returns the process-wide client. Callers must not mutate it.
func Default() *http.Client {
	return defaultClient
}

// WithTimeout returns a new client sharing Default's transport settings but
// with its own overall timeout. Playlist downloads run to hundreds of
// megabytes, so they need far more than DefaultTimeout.
func WithTimeout(timeout time.Duration) *http.Client {
	t, ok := defaultClient.Transport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{Timeout: timeout, Transport: t.Clone()}
}
