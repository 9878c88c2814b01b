package sheet

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ExcelSource reads and writes a local .xlsx workbook. It exists for offline
// runs and fixtures; every operation opens the workbook, applies its changes
// and saves, so concurrent writers are serialized by the mutex.
type ExcelSource struct {
	path   string
	logger zerolog.Logger

	mu sync.Mutex
}

// NewExcelSource builds a source for the workbook at path. The file must
// already exist.
func NewExcelSource(path string, logger zerolog.Logger) (*ExcelSource, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("workbook path is required")
	}
	if _, err := os.Stat(trimmed); err != nil {
		return nil, fmt.Errorf("stat workbook %s: %w", trimmed, err)
	}

	return &ExcelSource{
		path:   trimmed,
		logger: logger,
	}, nil
}

func (s *ExcelSource) Values(ctx context.Context, sheetName string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer file.Close()

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	return rows, nil
}

func (s *ExcelSource) Write(ctx context.Context, writes []CellWrite) error {
	if len(writes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer file.Close()

	for _, w := range writes {
		if err := ensureSheet(file, w.Sheet); err != nil {
			return err
		}
		if err := file.SetCellStr(w.Sheet, w.Ref, w.Value); err != nil {
			return fmt.Errorf("set cell %s!%s: %w", w.Sheet, w.Ref, err)
		}
	}

	if err := file.Save(); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}
	return nil
}

func (s *ExcelSource) Append(ctx context.Context, sheetName string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer file.Close()

	if err := ensureSheet(file, sheetName); err != nil {
		return err
	}

	existing, err := file.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheetName, err)
	}

	nextRow := len(existing) + 1
	for rowOffset, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, nextRow+rowOffset)
			if err != nil {
				return fmt.Errorf("compute cell for column %d row %d: %w", colIdx+1, nextRow+rowOffset, err)
			}
			if err := file.SetCellStr(sheetName, cell, value); err != nil {
				return fmt.Errorf("set cell %s!%s: %w", sheetName, cell, err)
			}
		}
	}

	if err := file.Save(); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}

	s.logger.Debug().Str("sheet", sheetName).Int("rows", len(rows)).Msg("appended rows to workbook")
	return nil
}

func ensureSheet(file *excelize.File, sheetName string) error {
	idx, err := file.GetSheetIndex(sheetName)
	if err != nil {
		return fmt.Errorf("lookup sheet %s: %w", sheetName, err)
	}
	if idx >= 0 {
		return nil
	}
	if _, err := file.NewSheet(sheetName); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetName, err)
	}
	return nil
}
