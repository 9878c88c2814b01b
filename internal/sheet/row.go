package sheet

import (
	"strings"

	"tintero.dev/escriba/internal/slug"
)

// Row is one parsed work-sheet row. Position is the 1-based sheet position;
// data rows start at 2 because position 1 is the header.
type Row struct {
	Position    int
	Title       string
	Keyword     string
	Description string
	Category    string
	ExecuteFlag string
	SlugRaw     string
	Slug        string
	URL         string
}

// Record is the identity summary of a published post, as stored on the
// history sheet and held in the in-memory index during a run.
type Record struct {
	Title    string
	Keyword  string
	Category string
	Slug     string
	URL      string
	PostID   string
	Excerpt  string
}

// Record converts a parsed history-sheet row into an identity record.
func (r Row) Record() Record {
	return Record{
		Title:    r.Title,
		Keyword:  r.Keyword,
		Category: r.Category,
		Slug:     r.Slug,
		URL:      r.URL,
	}
}

// ParseRows resolves the header (first row) and converts the remaining rows
// into logical rows. Cell reads are safe-indexed: an unmapped field or a row
// shorter than the mapped column yields an empty value. Output order matches
// input order; no filtering happens here.
func ParseRows(values [][]string) (HeaderMap, []Row) {
	if len(values) == 0 {
		return ResolveHeader(nil), nil
	}

	headers := ResolveHeader(values[0])
	rows := make([]Row, 0, len(values)-1)
	for i, raw := range values[1:] {
		row := Row{
			Position:    i + 2,
			Title:       safeCell(raw, headers, FieldTitle),
			Keyword:     safeCell(raw, headers, FieldKeyword),
			Description: safeCell(raw, headers, FieldDescription),
			Category:    safeCell(raw, headers, FieldCategory),
			ExecuteFlag: safeCell(raw, headers, FieldExecuteFlag),
		}

		row.SlugRaw = safeCell(raw, headers, FieldSlug)
		row.Slug = slug.Extract(row.SlugRaw)

		row.URL = deriveURL(headerCell(raw, headers, "url"))
		if row.URL == "" {
			row.URL = deriveURL(row.SlugRaw)
		}

		rows = append(rows, row)
	}

	return headers, rows
}

func safeCell(row []string, headers HeaderMap, field string) string {
	idx, ok := headers.Column(field)
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func headerCell(row []string, headers HeaderMap, name string) string {
	idx, ok := headers.HeaderColumn(name)
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// deriveURL accepts a value as a URL only when it carries an explicit
// http(s) scheme; anything else derives to empty.
func deriveURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	lowered := strings.ToLower(value)
	if strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://") {
		return value
	}
	return ""
}
