// Package pipeline drives the per-row publishing run: fetch flagged rows,
// dedupe, generate, publish, record the outcome.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tintero.dev/escriba/internal/composer"
	"tintero.dev/escriba/internal/dedupe"
	"tintero.dev/escriba/internal/globaltime"
	"tintero.dev/escriba/internal/sheet"
	"tintero.dev/escriba/internal/wordpress"
	articleschema "tintero.dev/escriba/schema"
)

const maxIndexExcerptRunes = 200

// Row outcomes recorded in the run report.
const (
	OutcomePublished    = "published"
	OutcomeDuplicate    = "duplicate"
	OutcomeError        = "error"
	OutcomeWouldPublish = "would_publish"
)

// Sheets is the spreadsheet surface the run drives.
type Sheets interface {
	RowsToProcess(ctx context.Context) []sheet.Row
	IndexRecords(ctx context.Context) []sheet.Record
	MarkStatus(ctx context.Context, rowPosition int, status string)
	MarkDuplicate(ctx context.Context, rowPosition int)
	UpdateAux(ctx context.Context, rowPosition int, aux sheet.Aux)
	AppendIndexRecords(ctx context.Context, records []sheet.Record)
}

// Generator produces one article per row.
type Generator interface {
	GenerateArticle(ctx context.Context, req composer.ArticleRequest) (*articleschema.Article, error)
}

// Publisher pushes generated content to the publishing backend.
type Publisher interface {
	PublishPost(ctx context.Context, req wordpress.PublishRequest) (*wordpress.Post, error)
	BaseURL() string
}

// SemanticDetector is the model-assisted duplicate stage.
type SemanticDetector interface {
	Semantic(ctx context.Context, candidate sheet.Row, index []sheet.Record) bool
}

// RunOptions tunes one run.
type RunOptions struct {
	// DryRun reads rows and evaluates duplicate checks but writes nothing
	// and publishes nothing.
	DryRun bool
	// SkipSemantic disables the model-assisted duplicate stage.
	SkipSemantic bool
}

// RowOutcome is the terminal state of one processed row.
type RowOutcome struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Outcome  string `json:"outcome"`
	Detail   string `json:"detail,omitempty"`
}

// RunReport summarizes one run.
type RunReport struct {
	RunID      string       `json:"run_id"`
	DryRun     bool         `json:"dry_run"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Candidates int          `json:"candidates"`
	Published  int          `json:"published"`
	Duplicates int          `json:"duplicates"`
	Errors     int          `json:"errors"`
	Rows       []RowOutcome `json:"rows"`
}

// Service orchestrates runs. Rows are processed one at a time in ascending
// sheet order; the in-memory identity index is the only shared mutable state
// and is only ever appended to during a run.
type Service struct {
	sheets    Sheets
	generator Generator
	publisher Publisher
	detector  SemanticDetector
	logger    zerolog.Logger
}

func NewService(sheets Sheets, generator Generator, publisher Publisher, detector SemanticDetector, logger zerolog.Logger) (*Service, error) {
	if sheets == nil {
		return nil, fmt.Errorf("sheets client is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if detector == nil {
		return nil, fmt.Errorf("semantic detector is required")
	}

	return &Service{
		sheets:    sheets,
		generator: generator,
		publisher: publisher,
		detector:  detector,
		logger:    logger,
	}, nil
}

// Run executes one full pass over the flagged rows. Per-row failures are
// isolated: the row is marked `error` and the run continues.
func (s *Service) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	report := RunReport{
		RunID:     uuid.NewString(),
		DryRun:    opts.DryRun,
		StartedAt: globaltime.UTC(),
	}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()

	rows := s.sheets.RowsToProcess(ctx)
	report.Candidates = len(rows)
	if len(rows) == 0 {
		logger.Info().Msg("no rows flagged for processing, nothing to do")
		report.FinishedAt = globaltime.UTC()
		return report, nil
	}

	index := s.sheets.IndexRecords(ctx)
	logger.Info().Int("candidates", len(rows)).Int("index_records", len(index)).Bool("dry_run", opts.DryRun).Msg("run started")

	var newRecords []sheet.Record
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = globaltime.UTC()
			return report, fmt.Errorf("run cancelled at row %d: %w", row.Position, err)
		}

		rowLogger := logger.With().Int("row", row.Position).Str("title", row.Title).Logger()
		rowLogger.Info().Msg("processing row")

		if dedupe.ExactDuplicate(row.Title, row.Keyword, row.SlugRaw, index) {
			rowLogger.Info().Msg("exact duplicate detected, skipping row")
			if !opts.DryRun {
				s.sheets.MarkDuplicate(ctx, row.Position)
			}
			report.Duplicates++
			report.Rows = append(report.Rows, RowOutcome{Position: row.Position, Title: row.Title, Outcome: OutcomeDuplicate, Detail: "exact"})
			continue
		}

		if !opts.SkipSemantic && s.detector.Semantic(ctx, row, index) {
			rowLogger.Info().Msg("semantic duplicate detected, skipping row")
			if !opts.DryRun {
				s.sheets.MarkDuplicate(ctx, row.Position)
			}
			report.Duplicates++
			report.Rows = append(report.Rows, RowOutcome{Position: row.Position, Title: row.Title, Outcome: OutcomeDuplicate, Detail: "semantic"})
			continue
		}

		if opts.DryRun {
			rowLogger.Info().Msg("dry run, row would be published")
			report.Published++
			report.Rows = append(report.Rows, RowOutcome{Position: row.Position, Title: row.Title, Outcome: OutcomeWouldPublish})
			continue
		}

		record, err := s.publishRow(ctx, row, rowLogger)
		if err != nil {
			rowLogger.Error().Err(err).Msg("row failed")
			s.sheets.MarkStatus(ctx, row.Position, sheet.StatusError)
			report.Errors++
			report.Rows = append(report.Rows, RowOutcome{Position: row.Position, Title: row.Title, Outcome: OutcomeError, Detail: err.Error()})
			continue
		}

		index = append(index, record)
		newRecords = append(newRecords, record)
		report.Published++
		report.Rows = append(report.Rows, RowOutcome{Position: row.Position, Title: record.Title, Outcome: OutcomePublished, Detail: record.Slug})
	}

	if !opts.DryRun && len(newRecords) > 0 {
		s.sheets.AppendIndexRecords(ctx, newRecords)
	}

	report.FinishedAt = globaltime.UTC()
	logger.Info().
		Int("published", report.Published).
		Int("duplicates", report.Duplicates).
		Int("errors", report.Errors).
		Msg("run finished")
	return report, nil
}

// publishRow generates, publishes and records one row. Any error is a
// row-recoverable failure handled by the caller.
func (s *Service) publishRow(ctx context.Context, row sheet.Row, logger zerolog.Logger) (sheet.Record, error) {
	article, err := s.generator.GenerateArticle(ctx, composer.ArticleRequest{
		Keyword:     row.Keyword,
		Description: row.Description,
		BaseTitle:   row.Title,
		Category:    row.Category,
	})
	if err != nil {
		return sheet.Record{}, fmt.Errorf("generate content: %w", err)
	}

	// The row's category wins over the model-suggested one.
	category := row.Category
	if strings.TrimSpace(category) == "" {
		category = article.Categoria
	}

	post, err := s.publisher.PublishPost(ctx, wordpress.PublishRequest{
		Title:           article.Title,
		ContentHTML:     article.ContentHTML,
		MetaDescription: article.MetaDescription,
		CategoryName:    category,
		Slug:            row.Slug,
	})
	if err != nil {
		return sheet.Record{}, fmt.Errorf("publish content: %w", err)
	}

	finalSlug := post.Slug
	if strings.TrimSpace(finalSlug) == "" {
		finalSlug = row.Slug
	}
	finalURL := post.Link
	if strings.TrimSpace(finalURL) == "" {
		finalURL = wordpress.PostURL(s.publisher.BaseURL(), finalSlug)
	}
	postID := strconv.Itoa(post.ID)
	excerpt := truncateRunes(article.MetaDescription, maxIndexExcerptRunes)

	s.sheets.MarkStatus(ctx, row.Position, sheet.StatusDone)
	s.sheets.UpdateAux(ctx, row.Position, sheet.Aux{
		Slug:    finalSlug,
		URL:     finalURL,
		PostID:  postID,
		Excerpt: excerpt,
	})

	logger.Info().Str("slug", finalSlug).Str("post_id", postID).Msg("row published")

	title := article.Title
	if strings.TrimSpace(title) == "" {
		title = row.Title
	}
	return sheet.Record{
		Title:    title,
		Keyword:  row.Keyword,
		Category: row.Category,
		Slug:     finalSlug,
		URL:      finalURL,
		PostID:   postID,
		Excerpt:  excerpt,
	}, nil
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
