// Package workbook reads PTS ranges from a local .xlsx export.
package workbook

import (
	"context"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
)

type Workbook struct {
	file *excelize.File
}

func Open(path string) (*Workbook, error) {
	if strings.TrimSpace(path) == "" {
		return nil, pts.ErrSourceNotInitialized.Wrapf("no workbook path configured")
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, pts.ErrSourceNotInitialized.Wrapf("open workbook %s: %v", path, err)
	}
	return &Workbook{file: f}, nil
}

func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, pts.ErrSourceNotInitialized.Wrapf("open workbook: %v", err)
	}
	return &Workbook{file: f}, nil
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

// FetchRange mirrors the Sheets API shape: trailing empty rows are dropped
// and each row is cut at its last non-empty cell.
func (w *Workbook) FetchRange(ctx context.Context, sheet string, spec pts.RangeSpec) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", spec.A1(sheet))
	}
	first := spec.StartRow - 1
	last := len(all)
	if spec.EndRow > 0 && spec.EndRow < last {
		last = spec.EndRow
	}
	if first >= last {
		return [][]string{}, nil
	}
	out := make([][]string, 0, last-first)
	for _, row := range all[first:last] {
		out = append(out, window(row, spec.StartCol, spec.EndCol))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func window(row []string, startCol, endCol int) []string {
	if startCol >= len(row) {
		return []string{}
	}
	end := endCol + 1
	if end > len(row) {
		end = len(row)
	}
	cells := append([]string(nil), row[startCol:end]...)
	for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	if cells == nil {
		cells = []string{}
	}
	return cells
}
