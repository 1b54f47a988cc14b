package exporter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fleetpulse/pkg/contracts/domain"
)

func TestExportWorkbook(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "weekly_rollup.xlsx")

	table := domain.NewWeeklyTable()
	table[9] = domain.WeeklySummary{
		Week:      10,
		ReturnPct: 16.67,
		MTTRHours: domain.Float(12.25),
		WOVolume:  4,
		PctLeq24:  domain.Float(75),
		PctLeq48:  domain.Float(100),
	}

	err := NewWorkbookExporter().ExportWorkbook(table, outputPath)
	require.NoError(t, err)

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ResultsSheetName}, f.GetSheetList())

	header, err := f.GetRows(ResultsSheetName)
	require.NoError(t, err)
	require.NotEmpty(t, header)
	assert.Equal(t, domain.WeeklySummaryHeader, header[0])

	week, err := f.GetCellValue(ResultsSheetName, "A11")
	require.NoError(t, err)
	assert.Equal(t, "10", week)

	mttr, err := f.GetCellValue(ResultsSheetName, "C11")
	require.NoError(t, err)
	assert.Equal(t, "12.25", mttr)

	// Week 11 had no data: MTTR cell stays blank, volume is 0
	blank, err := f.GetCellValue(ResultsSheetName, "C12")
	require.NoError(t, err)
	assert.Equal(t, "", blank)

	volume, err := f.GetCellValue(ResultsSheetName, "D12")
	require.NoError(t, err)
	assert.Equal(t, "0", volume)
}

func TestExportWorkbookRejectsInvalidTable(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "bad.xlsx")

	err := NewWorkbookExporter().ExportWorkbook(domain.NewWeeklyTable()[:3], outputPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid weekly table")
}
