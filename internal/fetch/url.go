package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// HostOf extracts the lowercase hostname from a raw URL. It returns
// "unknown" when the URL cannot be parsed, so it is safe to use directly
// as a map key or metric label.
func HostOf(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Normalize canonicalizes a URL for dedup purposes: fragment stripped,
// scheme defaulted to http, empty path normalized to "/".
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	parsed.Fragment = ""
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String(), nil
}

// SameHost reports whether two hostnames refer to the same origin,
// ignoring case.
func SameHost(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
