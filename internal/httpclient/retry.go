package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls the single retry DoWithRetry may take. Playlist hosts
// throttle aggressively (429 with Retry-After) and front their panels with
// flaky proxies (transient 5xx), so both get one more attempt by default.
type RetryPolicy struct {
	Retry429   bool
	Max429Wait time.Duration // cap on the honored Retry-After

	Retry5xx   bool
	Backoff5xx time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 60 * time.Second,
	Retry5xx:   true,
	Backoff5xx: 1 * time.Second,
}

// DoWithRetry performs req and retries once on 429 or 5xx per policy. Other
// 4xx are returned as-is. Caller must close resp.Body when err == nil.
// Requests are retried by URL + headers; a consumed request body is not
// replayed, which is fine for the GETs this package serves.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = Default()
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	var wait time.Duration
	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests && policy.Retry429:
		wait = parseRetryAfter(resp.Header.Get("Retry-After"), policy.Max429Wait)
	case code >= 500 && policy.Retry5xx:
		wait = policy.Backoff5xx
	default:
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}

	retry, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		retry.Header[k] = v
	}
	return client.Do(retry)
}

// parseRetryAfter reads Retry-After as delay-seconds or an HTTP-date and caps
// the result at max. Absent or unparseable values wait one second.
func parseRetryAfter(s string, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Second
	}
	var d time.Duration
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		d = time.Duration(sec) * time.Second
	} else if t, err := time.Parse(time.RFC1123, s); err == nil {
		d = time.Until(t)
	} else {
		return time.Second
	}
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}
