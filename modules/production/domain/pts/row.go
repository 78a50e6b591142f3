package pts

import (
	"fmt"
	"strings"
)

// SourceRow is one row of a fetched range. Cells[0] corresponds to the
// range's start column, Number is the 1-based sheet row.
type SourceRow struct {
	Number   int
	StartCol int
	Cells    []string
}

// ColumnIndex converts a column letter (A, Z, AA, ...) into a 0-based index.
func ColumnIndex(letter string) (int, error) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if letter == "" {
		return 0, fmt.Errorf("empty column letter")
	}
	idx := 0
	for _, r := range letter {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column letter %q", letter)
		}
		idx = idx*26 + int(r-'A'+1)
	}
	return idx - 1, nil
}

// ColumnLetter is the inverse of ColumnIndex.
func ColumnLetter(idx int) string {
	var b []byte
	for idx >= 0 {
		b = append([]byte{byte('A' + idx%26)}, b...)
		idx = idx/26 - 1
	}
	return string(b)
}

// Cell returns the trimmed text at the given column letter, or "" when the
// column is outside the row.
func (r SourceRow) Cell(letter string) string {
	idx, err := ColumnIndex(letter)
	if err != nil {
		return ""
	}
	idx -= r.StartCol
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[idx])
}

// Blank reports whether every cell is empty after trimming.
func (r SourceRow) Blank() bool {
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Rows numbers raw values according to the range they were fetched from.
func Rows(values [][]string, spec RangeSpec) []SourceRow {
	rows := make([]SourceRow, len(values))
	for i, cells := range values {
		rows[i] = SourceRow{
			Number:   spec.StartRow + i,
			StartCol: spec.StartCol,
			Cells:    cells,
		}
	}
	return rows
}
