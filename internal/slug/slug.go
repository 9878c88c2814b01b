// Package slug normalizes slugs and URL path segments into comparable tokens.
package slug

import (
	"net/url"
	"strings"
)

// Extract derives a normalized slug from a raw slug value or a full URL.
// It is total and idempotent: any input yields a lowercase token (possibly
// empty), and re-applying it to its own output returns the same token.
func Extract(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}

	path := raw
	lowered := strings.ToLower(raw)
	if strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		path = parsed.Path
	}

	path = strings.TrimRight(path, "/")
	if path == "" {
		return ""
	}

	segments := strings.Split(path, "/")
	return strings.ToLower(strings.TrimSpace(segments[len(segments)-1]))
}
