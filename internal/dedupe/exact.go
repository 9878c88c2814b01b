// Package dedupe decides whether a candidate row duplicates an already
// published entry, first by exact string rules, then by a model-assisted
// semantic comparison.
package dedupe

import (
	"strings"

	"tintero.dev/escriba/internal/sheet"
	"tintero.dev/escriba/internal/slug"
)

// ExactDuplicate reports whether the candidate matches any index record on
// slug, title or keyword. Each predicate requires both sides to be non-empty,
// so missing fields never match each other. The scan short-circuits on the
// first hit.
func ExactDuplicate(title, keyword, slugValue string, index []sheet.Record) bool {
	titleNorm := strings.ToLower(strings.TrimSpace(title))
	keywordNorm := strings.ToLower(strings.TrimSpace(keyword))
	slugNorm := slug.Extract(slugValue)

	for _, record := range index {
		recordSlug := slug.Extract(record.Slug)
		if recordSlug == "" {
			recordSlug = slug.Extract(record.URL)
		}
		if slugNorm != "" && recordSlug != "" && recordSlug == slugNorm {
			return true
		}

		recordTitle := strings.ToLower(strings.TrimSpace(record.Title))
		if titleNorm != "" && recordTitle != "" && recordTitle == titleNorm {
			return true
		}

		recordKeyword := strings.ToLower(strings.TrimSpace(record.Keyword))
		if keywordNorm != "" && recordKeyword != "" && recordKeyword == keywordNorm {
			return true
		}
	}
	return false
}
