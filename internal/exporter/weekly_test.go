package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetpulse/internal/config"
	"fleetpulse/pkg/contracts/domain"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	base := t.TempDir()
	return &config.Paths{
		DataDir:    base,
		UploadsDir: filepath.Join(base, "uploads"),
		HistoryDir: filepath.Join(base, "history"),
		ResultsDir: filepath.Join(base, "results"),
	}
}

func TestExportWeeklyCSV(t *testing.T) {
	paths := testPaths(t)
	exporter := NewWeeklyExporter(paths)

	table := domain.NewWeeklyTable()
	table[9] = domain.WeeklySummary{
		Week:      10,
		ReturnPct: 16.67,
		MTTRHours: domain.Float(12.25),
		WOVolume:  4,
		PctLeq24:  domain.Float(75),
		PctLeq48:  domain.Float(100),
	}

	err := exporter.ExportWeeklyCSV(table, "weekly_rollup.csv")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(paths.ResultsDir, "weekly_rollup.csv"))
	require.NoError(t, err)

	// UTF-8 BOM for Excel
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
	rows, err := reader.ReadAll()
	require.NoError(t, err)

	// Header plus all 52 weeks, even the empty ones
	require.Len(t, rows, domain.WeeksPerYear+1)
	assert.Equal(t, domain.WeeklySummaryHeader, rows[0])
	assert.Equal(t, []string{"10", "16.67", "12.25", "4", "75.00", "100.00"}, rows[10])
	assert.Equal(t, []string{"1", "0.00", "", "0", "", ""}, rows[1])

	parsed, err := domain.WeeklySummaryFromCSVRow(rows[10])
	require.NoError(t, err)
	assert.Equal(t, table[9], parsed)
}

func TestExportWeeklyCSVRejectsInvalidTable(t *testing.T) {
	exporter := NewWeeklyExporter(testPaths(t))

	truncated := domain.NewWeeklyTable()[:10]
	err := exporter.ExportWeeklyCSV(truncated, "weekly_rollup.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid weekly table")
}

func TestCSVWriterResolvePath(t *testing.T) {
	paths := testPaths(t)
	w := NewCSVWriter(paths)

	assert.Equal(t, filepath.Join(paths.UploadsDir, "a.xlsx"), w.resolvePath("uploads/a.xlsx"))
	assert.Equal(t, filepath.Join(paths.HistoryDir, "snap.csv"), w.resolvePath("history/snap.csv"))
	assert.Equal(t, filepath.Join(paths.ResultsDir, "out.csv"), w.resolvePath("out.csv"))
	assert.Equal(t, "/tmp/abs.csv", w.resolvePath("/tmp/abs.csv"))
}
