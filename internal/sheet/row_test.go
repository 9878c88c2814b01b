package sheet

import "testing"

func TestParseRows_SpanishHeaders(t *testing.T) {
	t.Parallel()

	values := [][]string{
		{"Título", "Keyword Principal", "Categoría", "Ejecutar?", "Slug"},
		{"Mi Post", "clave x", "Tecnología", "si", "/mi-post"},
	}

	_, rows := ParseRows(values)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.Position != 2 {
		t.Fatalf("expected position 2, got %d", row.Position)
	}
	if row.Title != "Mi Post" || row.Keyword != "clave x" || row.Category != "Tecnología" {
		t.Fatalf("unexpected parsed fields: %+v", row)
	}
	if row.ExecuteFlag != "si" {
		t.Fatalf("expected execute flag 'si', got %q", row.ExecuteFlag)
	}
	if row.Slug != "mi-post" {
		t.Fatalf("expected slug 'mi-post', got %q", row.Slug)
	}
	if row.URL != "" {
		t.Fatalf("expected empty url for bare path slug, got %q", row.URL)
	}
}

func TestParseRows_URLDerivation(t *testing.T) {
	t.Parallel()

	values := [][]string{
		{"Título", "URL"},
		{"Post A", "https://example.com/blog/post-a"},
		{"Post B", "not-a-url"},
	}

	_, rows := ParseRows(values)
	if rows[0].URL != "https://example.com/blog/post-a" {
		t.Fatalf("expected url to pass through, got %q", rows[0].URL)
	}
	if rows[0].Slug != "post-a" {
		t.Fatalf("expected slug derived from url, got %q", rows[0].Slug)
	}
	if rows[1].URL != "" {
		t.Fatalf("expected empty url for schemeless value, got %q", rows[1].URL)
	}
}

func TestParseRows_RaggedAndMissingColumns(t *testing.T) {
	t.Parallel()

	values := [][]string{
		{"Título", "Keyword Principal", "Ejecutar?"},
		{"Solo Titulo"},
		{},
		{"Completo", "kw", "si", "celda extra"},
	}

	_, rows := ParseRows(values)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].Keyword != "" || rows[0].ExecuteFlag != "" {
		t.Fatalf("expected short row to read empty cells, got %+v", rows[0])
	}
	if rows[1].Title != "" {
		t.Fatalf("expected empty row to read empty title, got %q", rows[1].Title)
	}
	for _, row := range rows {
		if row.Category != "" || row.Description != "" {
			t.Fatalf("expected unmapped fields to stay empty, got %+v", row)
		}
	}
	if rows[2].ExecuteFlag != "si" {
		t.Fatalf("expected full row to parse, got %+v", rows[2])
	}
}

func TestParseRows_Empty(t *testing.T) {
	t.Parallel()

	headers, rows := ParseRows(nil)
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if headers.Resolved() {
		t.Fatal("expected no resolved headers")
	}
}

func TestRowRecord(t *testing.T) {
	t.Parallel()

	row := Row{
		Position: 5,
		Title:    "T",
		Keyword:  "K",
		Category: "C",
		Slug:     "t-slug",
		URL:      "https://example.com/t-slug",
	}
	record := row.Record()
	if record.Title != "T" || record.Keyword != "K" || record.Category != "C" {
		t.Fatalf("unexpected record fields: %+v", record)
	}
	if record.Slug != "t-slug" || record.URL != "https://example.com/t-slug" {
		t.Fatalf("unexpected record slug/url: %+v", record)
	}
	if record.PostID != "" || record.Excerpt != "" {
		t.Fatalf("expected empty post id/excerpt on parse, got %+v", record)
	}
}
