package dedupe

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"tintero.dev/escriba/internal/composer"
	"tintero.dev/escriba/internal/sheet"
)

type stubJudge struct {
	calls    int
	requests []composer.JudgeRequest
	verdict  composer.Verdict
	err      error
}

func (j *stubJudge) JudgeDuplicate(_ context.Context, req composer.JudgeRequest) (composer.Verdict, error) {
	j.calls++
	j.requests = append(j.requests, req)
	if j.err != nil {
		return composer.Verdict{}, j.err
	}
	return j.verdict, nil
}

func TestSemantic_EmptyIndexNoCall(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{}
	detector := NewDetector(judge, zerolog.Nop())

	if detector.Semantic(context.Background(), sheet.Row{Keyword: "clave"}, nil) {
		t.Fatal("expected false for empty index")
	}
	if judge.calls != 0 {
		t.Fatalf("expected no judge call for empty index, got %d", judge.calls)
	}
}

func TestSemantic_RelevanceFilter(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{verdict: composer.Verdict{Duplicate: true, Reason: "mismo tema", MatchSlug: "zapatos"}}
	detector := NewDetector(judge, zerolog.Nop())

	index := []sheet.Record{
		{Title: "Zapatos", Keyword: "zapatos", Slug: "zapatos"},
		{Title: "Camisas", Keyword: "camisas", Category: "Ropa"},
		{Title: "Coches", Keyword: "coches", Category: "Motor"},
	}
	candidate := sheet.Row{Keyword: "zapatos rojos", Category: "ropa"}

	if !detector.Semantic(context.Background(), candidate, index) {
		t.Fatal("expected duplicate verdict to propagate")
	}
	if judge.calls != 1 {
		t.Fatalf("expected one judge call, got %d", judge.calls)
	}

	existing := judge.requests[0].Existing
	if len(existing) != 2 {
		t.Fatalf("expected 2 relevance-filtered records, got %d: %+v", len(existing), existing)
	}
	// "zapatos" is kept by keyword substring, "Camisas" by category equality.
	if existing[0].Keyword != "zapatos" || existing[1].Keyword != "camisas" {
		t.Fatalf("unexpected filtered records: %+v", existing)
	}
}

func TestSemantic_FallbackToWholeIndex(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{}
	detector := NewDetector(judge, zerolog.Nop())

	index := []sheet.Record{
		{Keyword: "coches", Category: "Motor"},
		{Keyword: "motos", Category: "Motor"},
	}
	candidate := sheet.Row{Keyword: "recetas veganas", Category: "Cocina"}

	detector.Semantic(context.Background(), candidate, index)

	if judge.calls != 1 {
		t.Fatalf("expected judge call on whole-index fallback, got %d", judge.calls)
	}
	if len(judge.requests[0].Existing) != 2 {
		t.Fatalf("expected whole index in fallback, got %d records", len(judge.requests[0].Existing))
	}
}

func TestSemantic_CandidateCap(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{}
	detector := NewDetector(judge, zerolog.Nop())

	index := make([]sheet.Record, 40)
	for i := range index {
		index[i] = sheet.Record{Keyword: "clave", Slug: fmt.Sprintf("post-%d", i)}
	}

	detector.Semantic(context.Background(), sheet.Row{Keyword: "clave"}, index)

	if len(judge.requests[0].Existing) != 25 {
		t.Fatalf("expected cap of 25 records, got %d", len(judge.requests[0].Existing))
	}
	if judge.requests[0].Existing[0].Slug != "post-0" {
		t.Fatalf("expected index order preserved, got first slug %q", judge.requests[0].Existing[0].Slug)
	}
}

func TestSemantic_FailOpen(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{err: fmt.Errorf("endpoint down")}
	detector := NewDetector(judge, zerolog.Nop())

	index := []sheet.Record{{Keyword: "clave"}}
	if detector.Semantic(context.Background(), sheet.Row{Keyword: "clave"}, index) {
		t.Fatal("expected fail-open false on judge error")
	}
}
