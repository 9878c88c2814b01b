package dedupe

import (
	"testing"

	"tintero.dev/escriba/internal/sheet"
)

func TestExactDuplicate_SlugMatch(t *testing.T) {
	t.Parallel()

	index := []sheet.Record{
		{Title: "Otro Título", Slug: "mi-post"},
	}
	if !ExactDuplicate("Título Distinto", "otra clave", "/blog/mi-post/", index) {
		t.Fatal("expected slug match despite differing titles")
	}
}

func TestExactDuplicate_SlugFromRecordURL(t *testing.T) {
	t.Parallel()

	index := []sheet.Record{
		{Title: "Viejo", URL: "https://blog.example.com/guias/mi-post"},
	}
	if !ExactDuplicate("", "", "mi-post", index) {
		t.Fatal("expected slug match via record url fallback")
	}
}

func TestExactDuplicate_TitleMatch(t *testing.T) {
	t.Parallel()

	index := []sheet.Record{
		{Title: "  Mi Post  "},
	}
	if !ExactDuplicate("mi post", "", "", index) {
		t.Fatal("expected case/whitespace-insensitive title match")
	}
}

func TestExactDuplicate_KeywordMatch(t *testing.T) {
	t.Parallel()

	index := []sheet.Record{
		{Keyword: "Zapatos Rojos"},
	}
	if !ExactDuplicate("", "zapatos rojos", "", index) {
		t.Fatal("expected keyword match")
	}
}

func TestExactDuplicate_EmptyNeverMatches(t *testing.T) {
	t.Parallel()

	index := []sheet.Record{
		{Title: "", Keyword: "", Slug: ""},
		{Title: "Algo"},
	}
	if ExactDuplicate("", "", "", index) {
		t.Fatal("empty candidate fields must never match")
	}
}

func TestExactDuplicate_NoMatch(t *testing.T) {
	t.Parallel()

	index := []sheet.Record{
		{Title: "Post A", Keyword: "ka", Slug: "post-a"},
		{Title: "Post B", Keyword: "kb", Slug: "post-b"},
	}
	if ExactDuplicate("Post C", "kc", "post-c", index) {
		t.Fatal("expected no match")
	}
	if ExactDuplicate("Post C", "kc", "post-c", nil) {
		t.Fatal("expected no match against empty index")
	}
}
