// Package ingest accepts raw tracker payloads and turns them into
// accepted events: validate, fingerprint, dedup, then fan out to the
// realtime view and the durable pipeline.
package ingest

import (
	"net/url"
	"strings"
)

const maxMetaLength = 500

// SanitizeReferrer cleans and truncates the referrer URL.
// Strips query parameters and fragments for privacy.
func SanitizeReferrer(ref string) string {
	if ref == "" {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	// Keep only scheme + host + path; strip query params and fragments
	parsed.RawQuery = ""
	parsed.Fragment = ""

	sanitized := parsed.String()
	if len(sanitized) > maxMetaLength {
		return sanitized[:maxMetaLength]
	}
	return sanitized
}

// ExtractReferrerDomain extracts the domain from a referrer URL.
// Returns "direct" for empty referrer.
func ExtractReferrerDomain(ref string) string {
	if ref == "" {
		return "direct"
	}

	parsed, err := url.Parse(ref)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}

	return strings.TrimPrefix(parsed.Host, "www.")
}

// ExtractCountryCode extracts a country code from an edge-provided
// header value. Returns "Unknown" when missing or malformed.
func ExtractCountryCode(header string) string {
	if header != "" && len(header) == 2 {
		return strings.ToUpper(header)
	}
	return "Unknown"
}

// NormalizePath reduces a page path to its canonical form: leading
// slash, no query or fragment, no trailing slash except root.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
