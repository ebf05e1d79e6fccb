// Package fetch downloads remote playlist payloads over HTTP with a hard
// timeout, request pacing, and transparent brotli/gzip decoding.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/httpclient"
	"github.com/streamdex/streamdex/internal/safeurl"
)

const (
	// DefaultTimeout bounds the whole download, connect through last byte.
	DefaultTimeout = 60 * time.Second

	// MaxPlaylistBytes caps the decoded payload. Provider playlists run to
	// tens of megabytes; anything past this is a misbehaving upstream.
	MaxPlaylistBytes = 256 << 20

	// Some providers fingerprint non-browser agents and return empty
	// playlists, so the request presents as a desktop browser.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client fetches playlist documents. One Client paces all of its requests
// through a shared rate limiter so bursts of tenant refreshes don't hammer
// a provider.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// New returns a Client with the default timeout and pacing of one request
// per second with a burst of two.
func New() *Client {
	return NewWithClient(httpclient.WithTimeout(DefaultTimeout), rate.NewLimiter(rate.Every(time.Second), 2))
}

// NewWithClient lets callers supply the underlying HTTP client and limiter.
// A nil limiter disables pacing.
func NewWithClient(hc *http.Client, limiter *rate.Limiter) *Client {
	return &Client{http: hc, limiter: limiter}
}

// Playlist downloads the playlist at rawURL and returns the decoded text.
// Exceeding the timeout yields an error matching catalog.ErrFetchTimeout.
func (c *Client) Playlist(ctx context.Context, rawURL string) (string, error) {
	if !safeurl.IsHTTPOrHTTPS(rawURL) {
		return "", fmt.Errorf("%w: playlist URL must be http or https: %q", catalog.ErrValidation, rawURL)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	// Set explicitly so the transport doesn't silently strip brotli.
	req.Header.Set("Accept-Encoding", "br, gzip")

	release := httpclient.GlobalHostSem.Acquire(rawURL)
	defer release()

	resp, err := httpclient.DoWithRetry(ctx, c.http, req, httpclient.DefaultRetryPolicy)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %s after %s", catalog.ErrFetchTimeout, rawURL, c.http.Timeout)
		}
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxPlaylistBytes+1))
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %s while reading body", catalog.ErrFetchTimeout, rawURL)
		}
		return "", fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}
	if len(data) > MaxPlaylistBytes {
		return "", fmt.Errorf("fetch %s: payload exceeds %d bytes", rawURL, MaxPlaylistBytes)
	}
	return string(data), nil
}

// decodeBody unwraps the response body according to Content-Encoding.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
		return resp.Body, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
