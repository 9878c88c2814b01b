package dedupe

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"tintero.dev/escriba/internal/composer"
	"tintero.dev/escriba/internal/sheet"
)

// semanticCandidateLimit caps how many index records travel in one judge
// request. The cap applies after the whole-index fallback, so a very large
// history can hide true duplicates past this position; preserved as-is.
const semanticCandidateLimit = 25

// Judge is the model-assisted duplicate decision.
type Judge interface {
	JudgeDuplicate(ctx context.Context, req composer.JudgeRequest) (composer.Verdict, error)
}

// Detector runs the semantic duplicate stage. The stage is fail-open: any
// judge failure is logged and treated as "not a duplicate".
type Detector struct {
	judge  Judge
	logger zerolog.Logger
}

func NewDetector(judge Judge, logger zerolog.Logger) *Detector {
	return &Detector{
		judge:  judge,
		logger: logger,
	}
}

// Semantic reports whether the model considers the candidate a topical
// duplicate of an existing entry. An empty index returns false without any
// external call.
func (d *Detector) Semantic(ctx context.Context, candidate sheet.Row, index []sheet.Record) bool {
	relevant := selectRelevant(candidate, index)
	if len(relevant) == 0 {
		return false
	}

	existing := make([]composer.RecordSummary, 0, len(relevant))
	for _, record := range relevant {
		existing = append(existing, composer.RecordSummary{
			Title:    record.Title,
			Keyword:  record.Keyword,
			Category: record.Category,
			Slug:     record.Slug,
			URL:      record.URL,
		})
	}

	verdict, err := d.judge.JudgeDuplicate(ctx, composer.JudgeRequest{
		Candidate: composer.CandidateSummary{
			Title:       candidate.Title,
			Keyword:     candidate.Keyword,
			Description: candidate.Description,
			Category:    candidate.Category,
			Slug:        candidate.Slug,
			URL:         candidate.URL,
		},
		Existing: existing,
	})
	if err != nil {
		d.logger.Error().Err(err).Int("row", candidate.Position).Msg("semantic duplicate check failed, treating as not duplicate")
		return false
	}

	if verdict.Duplicate {
		d.logger.Info().
			Int("row", candidate.Position).
			Str("reason", verdict.Reason).
			Str("match_slug", verdict.MatchSlug).
			Msg("semantic duplicate detected")
	}
	return verdict.Duplicate
}

// selectRelevant keeps the index records sharing keyword substring or exact
// category with the candidate, falling back to the whole index when the
// filter comes up empty, then caps the set in index order.
func selectRelevant(candidate sheet.Row, index []sheet.Record) []sheet.Record {
	keyword := strings.ToLower(strings.TrimSpace(candidate.Keyword))
	category := strings.ToLower(strings.TrimSpace(candidate.Category))

	filtered := make([]sheet.Record, 0, len(index))
	for _, record := range index {
		recordKeyword := strings.ToLower(strings.TrimSpace(record.Keyword))
		recordCategory := strings.ToLower(strings.TrimSpace(record.Category))

		switch {
		case keyword != "" && recordKeyword != "" &&
			(strings.Contains(recordKeyword, keyword) || strings.Contains(keyword, recordKeyword)):
			filtered = append(filtered, record)
		case category != "" && recordCategory != "" && category == recordCategory:
			filtered = append(filtered, record)
		}
	}

	if len(filtered) == 0 {
		filtered = index
	}
	if len(filtered) > semanticCandidateLimit {
		filtered = filtered[:semanticCandidateLimit]
	}
	return filtered
}
