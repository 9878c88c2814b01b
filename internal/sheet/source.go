package sheet

import "context"

// CellWrite is a single-cell write addressed in A1 notation.
type CellWrite struct {
	Sheet string
	Ref   string
	Value string
}

// StatusUpdate pairs a row position with the status token to write there.
type StatusUpdate struct {
	Position int
	Status   string
}

// Source is the spreadsheet transport. Values returns the full sheet as
// ragged rows, first row included.
type Source interface {
	Values(ctx context.Context, sheetName string) ([][]string, error)
	Write(ctx context.Context, writes []CellWrite) error
	Append(ctx context.Context, sheetName string, rows [][]string) error
}

// columnLetter converts a zero-based column index to A1 letters
// (0 -> A, 25 -> Z, 26 -> AA). Negative indices clamp to A.
func columnLetter(index int) string {
	if index < 0 {
		return "A"
	}
	result := ""
	current := index + 1
	for current > 0 {
		current--
		result = string(rune('A'+current%26)) + result
		current /= 26
	}
	if result == "" {
		return "A"
	}
	return result
}
