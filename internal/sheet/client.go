package sheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Status tokens written back to the execution-flag column. The `si` flag that
// selects rows for processing is only ever read, never written.
const (
	StatusDone      = "hecho"
	StatusError     = "error"
	StatusDuplicate = "duplicado"

	// fallbackExecuteColumn is used for status writes when no ejecutar alias
	// resolved in the header.
	fallbackExecuteColumn = 4

	batchStatusChunkSize = 50
)

// Aux carries the auxiliary columns written back to a processed row.
type Aux struct {
	Slug    string
	URL     string
	PostID  string
	Excerpt string
}

// Client reads and writes the work and history sheets through a Source,
// caching one resolved header per sheet.
type Client struct {
	source     Source
	mainSheet  string
	indexSheet string
	logger     zerolog.Logger

	mainHeaders  HeaderMap
	mainResolved bool

	indexHeaders  HeaderMap
	indexResolved bool
}

// NewClient builds a client over a spreadsheet source.
func NewClient(source Source, mainSheet, indexSheet string, logger zerolog.Logger) (*Client, error) {
	if source == nil {
		return nil, fmt.Errorf("sheet source is required")
	}
	main := strings.TrimSpace(mainSheet)
	if main == "" {
		return nil, fmt.Errorf("main sheet name is required")
	}
	index := strings.TrimSpace(indexSheet)
	if index == "" {
		return nil, fmt.Errorf("index sheet name is required")
	}

	return &Client{
		source:     source,
		mainSheet:  main,
		indexSheet: index,
		logger:     logger,
	}, nil
}

// RowsToProcess reads the work sheet and returns the rows whose execution
// flag equals `si` after trim+lowercase. A read failure is logged and yields
// an empty result.
func (c *Client) RowsToProcess(ctx context.Context) []Row {
	rows := c.readMain(ctx)

	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		if strings.ToLower(strings.TrimSpace(row.ExecuteFlag)) == "si" {
			filtered = append(filtered, row)
		}
	}

	c.logger.Info().Str("sheet", c.mainSheet).Int("rows", len(filtered)).Msg("rows flagged for processing")
	return filtered
}

// IndexRecords reads the history sheet into identity records. A read failure
// is logged and yields an empty index.
func (c *Client) IndexRecords(ctx context.Context) []Record {
	values, err := c.source.Values(ctx, c.indexSheet)
	if err != nil {
		c.logger.Error().Err(err).Str("sheet", c.indexSheet).Msg("failed to read history sheet")
		return nil
	}

	headers, rows := ParseRows(values)
	c.indexHeaders = headers
	c.indexResolved = true

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	return records
}

// MarkStatus writes a status token to the execution-flag column of one row.
// Write failures are logged, never propagated.
func (c *Client) MarkStatus(ctx context.Context, rowPosition int, status string) {
	ref := fmt.Sprintf("%s%d", columnLetter(c.executeColumn()), rowPosition)
	err := c.source.Write(ctx, []CellWrite{{Sheet: c.mainSheet, Ref: ref, Value: status}})
	if err != nil {
		c.logger.Error().Err(err).Int("row", rowPosition).Str("status", status).Msg("failed to write row status")
		return
	}
	c.logger.Info().Int("row", rowPosition).Str("status", status).Msg("row status updated")
}

// MarkDuplicate records a row as a detected duplicate.
func (c *Client) MarkDuplicate(ctx context.Context, rowPosition int) {
	c.logger.Info().Int("row", rowPosition).Msg("row marked as duplicate")
	c.MarkStatus(ctx, rowPosition, StatusDuplicate)
}

// BatchMarkStatus writes many status tokens in chunks of 50 ranges per
// request. Chunk failures are logged and the remaining chunks still run.
func (c *Client) BatchMarkStatus(ctx context.Context, updates []StatusUpdate) {
	column := columnLetter(c.executeColumn())
	for start := 0; start < len(updates); start += batchStatusChunkSize {
		end := start + batchStatusChunkSize
		if end > len(updates) {
			end = len(updates)
		}

		writes := make([]CellWrite, 0, end-start)
		for _, update := range updates[start:end] {
			writes = append(writes, CellWrite{
				Sheet: c.mainSheet,
				Ref:   fmt.Sprintf("%s%d", column, update.Position),
				Value: update.Status,
			})
		}
		if err := c.source.Write(ctx, writes); err != nil {
			c.logger.Error().Err(err).Int("updates", len(writes)).Msg("batch status write failed")
		}
	}
}

// UpdateAux writes the auxiliary columns of a processed row in one batched
// request. Columns are resolved through the permissive lookup; a field whose
// column cannot be resolved is skipped. Write failures are logged only.
func (c *Client) UpdateAux(ctx context.Context, rowPosition int, aux Aux) {
	headers, ok := c.ensureMainHeaders(ctx)
	if !ok {
		c.logger.Warn().Int("row", rowPosition).Msg("cannot update auxiliary columns: no headers detected")
		return
	}

	fields := []struct {
		key   string
		value string
	}{
		{"slug", aux.Slug},
		{"url", aux.URL},
		{"post_id", aux.PostID},
		{"excerpt", aux.Excerpt},
	}

	writes := make([]CellWrite, 0, len(fields))
	for _, field := range fields {
		idx, found := headers.LookupColumn(field.key)
		if !found {
			c.logger.Debug().Str("field", field.key).Msg("column not found, skipping auxiliary write")
			continue
		}
		writes = append(writes, CellWrite{
			Sheet: c.mainSheet,
			Ref:   fmt.Sprintf("%s%d", columnLetter(idx), rowPosition),
			Value: field.value,
		})
	}
	if len(writes) == 0 {
		return
	}

	if err := c.source.Write(ctx, writes); err != nil {
		c.logger.Error().Err(err).Int("row", rowPosition).Msg("failed to update auxiliary columns")
		return
	}
	c.logger.Info().Int("row", rowPosition).Int("columns", len(writes)).Msg("auxiliary columns updated")
}

// AppendIndexRecords appends identity records as rows shaped by the history
// sheet's header. Fields whose column cannot be resolved are dropped from the
// appended rows. Failures are logged only.
func (c *Client) AppendIndexRecords(ctx context.Context, records []Record) {
	if len(records) == 0 {
		return
	}

	headers, ok := c.ensureIndexHeaders(ctx)
	if !ok {
		c.logger.Warn().Msg("cannot append index records: no history headers detected")
		return
	}

	width := headers.Len()
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, width)
		setByLookup(row, headers, FieldTitle, record.Title)
		setByLookup(row, headers, FieldKeyword, record.Keyword)
		setByLookup(row, headers, FieldCategory, record.Category)
		setByLookup(row, headers, "slug", record.Slug)
		setByLookup(row, headers, "url", record.URL)
		setByLookup(row, headers, "post_id", record.PostID)
		setByLookup(row, headers, "excerpt", record.Excerpt)
		rows = append(rows, row)
	}

	if err := c.source.Append(ctx, c.indexSheet, rows); err != nil {
		c.logger.Error().Err(err).Int("records", len(rows)).Msg("failed to append index records")
		return
	}
	c.logger.Info().Int("records", len(rows)).Str("sheet", c.indexSheet).Msg("index records appended")
}

func setByLookup(row []string, headers HeaderMap, key, value string) {
	idx, ok := headers.LookupColumn(key)
	if !ok || idx >= len(row) {
		return
	}
	row[idx] = value
}

func (c *Client) readMain(ctx context.Context) []Row {
	values, err := c.source.Values(ctx, c.mainSheet)
	if err != nil {
		c.logger.Error().Err(err).Str("sheet", c.mainSheet).Msg("failed to read work sheet")
		return nil
	}

	headers, rows := ParseRows(values)
	c.mainHeaders = headers
	c.mainResolved = true
	return rows
}

// ensureMainHeaders lazily re-reads the work sheet when no read has happened
// yet in this client's lifetime.
func (c *Client) ensureMainHeaders(ctx context.Context) (HeaderMap, bool) {
	if !c.mainResolved {
		c.readMain(ctx)
	}
	if !c.mainResolved || c.mainHeaders.Len() == 0 {
		return HeaderMap{}, false
	}
	return c.mainHeaders, true
}

func (c *Client) ensureIndexHeaders(ctx context.Context) (HeaderMap, bool) {
	if !c.indexResolved {
		c.IndexRecords(ctx)
	}
	if !c.indexResolved || c.indexHeaders.Len() == 0 {
		return HeaderMap{}, false
	}
	return c.indexHeaders, true
}

func (c *Client) executeColumn() int {
	if idx, ok := c.mainHeaders.Column(FieldExecuteFlag); ok {
		return idx
	}
	return fallbackExecuteColumn
}
