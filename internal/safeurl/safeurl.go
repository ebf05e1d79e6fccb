// Package safeurl validates user-supplied playlist source URLs before any
// request is made with them.
package safeurl

import "net/url"

// IsHTTPOrHTTPS reports whether u is a fetchable playlist source: an absolute
// http or https URL with a host. Tenants paste these in, so file://, ftp://,
// data: and schemeless strings are all rejected before they reach a client.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}
