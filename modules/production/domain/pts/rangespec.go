package pts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RangeSpec is a parsed A1-style range like "A2:T" or "A2:T500".
type RangeSpec struct {
	StartCol int
	StartRow int
	EndCol   int
	// EndRow is 0 for open-ended ranges.
	EndRow int
}

var cellRefRe = regexp.MustCompile(`^([A-Za-z]+)(\d*)$`)

func ParseRangeSpec(s string) (RangeSpec, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return RangeSpec{}, fmt.Errorf("invalid range %q: expected START:END", s)
	}
	startCol, startRow, err := parseCellRef(parts[0])
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	endCol, endRow, err := parseCellRef(parts[1])
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if startRow == 0 {
		startRow = 1
	}
	if endCol < startCol {
		return RangeSpec{}, fmt.Errorf("invalid range %q: end column before start column", s)
	}
	if endRow != 0 && endRow < startRow {
		return RangeSpec{}, fmt.Errorf("invalid range %q: end row before start row", s)
	}
	return RangeSpec{StartCol: startCol, StartRow: startRow, EndCol: endCol, EndRow: endRow}, nil
}

func (r RangeSpec) Width() int {
	return r.EndCol - r.StartCol + 1
}

func (r RangeSpec) String() string {
	s := ColumnLetter(r.StartCol) + strconv.Itoa(r.StartRow) + ":" + ColumnLetter(r.EndCol)
	if r.EndRow > 0 {
		s += strconv.Itoa(r.EndRow)
	}
	return s
}

// A1 renders the range qualified with a sheet name: 'Sheet'!A2:T.
func (r RangeSpec) A1(sheet string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), r.String())
}

func parseCellRef(ref string) (col, row int, err error) {
	m := cellRefRe.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return 0, 0, fmt.Errorf("bad cell reference %q", ref)
	}
	col, err = ColumnIndex(m[1])
	if err != nil {
		return 0, 0, err
	}
	if m[2] != "" {
		row, err = strconv.Atoi(m[2])
		if err != nil || row < 1 {
			return 0, 0, fmt.Errorf("bad row in cell reference %q", ref)
		}
	}
	return col, row, nil
}
