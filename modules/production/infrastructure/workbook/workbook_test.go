package workbook

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
)

func buildWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { require.NoError(t, f.Close()) }()

	_, err := f.NewSheet("02-Raw Data")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("02-Raw Data", "A1", &[]any{"#", "Project", "Designation"}))
	require.NoError(t, f.SetSheetRow("02-Raw Data", "A2", &[]any{"1", "254", "254-Z8T-CO2", "", "Z8T", "", "CO2", 4}))
	require.NoError(t, f.SetSheetRow("02-Raw Data", "A4", &[]any{"3", "254", "254-Z8T-CO3"}))
	require.NoError(t, f.SetCellValue("02-Raw Data", "X4", "outside"))

	path := filepath.Join(t.TempDir(), "pts.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestFetchRange(t *testing.T) {
	wb, err := Open(buildWorkbook(t))
	require.NoError(t, err)
	defer wb.Close()

	spec, err := pts.ParseRangeSpec("A2:T")
	require.NoError(t, err)
	rows, err := wb.FetchRange(context.Background(), "02-Raw Data", spec)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"1", "254", "254-Z8T-CO2", "", "Z8T", "", "CO2", "4"}, rows[0])
	require.Empty(t, rows[1])
	require.Equal(t, []string{"3", "254", "254-Z8T-CO3"}, rows[2])

	parsed := pts.Rows(rows, spec)
	require.Equal(t, 4, parsed[2].Number)
	require.Equal(t, "254-Z8T-CO3", parsed[2].Cell("C"))
}

func TestFetchRange_BoundedAndOffset(t *testing.T) {
	wb, err := Open(buildWorkbook(t))
	require.NoError(t, err)
	defer wb.Close()

	spec, err := pts.ParseRangeSpec("B2:C3")
	require.NoError(t, err)
	rows, err := wb.FetchRange(context.Background(), "02-Raw Data", spec)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"254", "254-Z8T-CO2"}}, rows)
}

func TestFetchRange_UnknownSheet(t *testing.T) {
	wb, err := Open(buildWorkbook(t))
	require.NoError(t, err)
	defer wb.Close()

	_, err = wb.FetchRange(context.Background(), "04-Log", pts.RangeSpec{StartRow: 2, EndCol: 17})
	require.Error(t, err)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open("")
	require.ErrorIs(t, err, pts.ErrSourceNotInitialized)
	_, err = Open(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.ErrorIs(t, err, pts.ErrSourceNotInitialized)
}
