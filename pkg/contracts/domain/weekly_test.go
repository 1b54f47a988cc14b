package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWeeklyTableIsDenseAndBlank(t *testing.T) {
	table := NewWeeklyTable()

	require.NoError(t, table.Validate())
	require.Len(t, table, WeeksPerYear)
	assert.Equal(t, 1, table[0].Week)
	assert.Equal(t, 52, table[51].Week)
	assert.Empty(t, table.ActiveWeeks())
	assert.Equal(t, 0, table.TotalVolume())
}

func TestWeeklyTableValidate(t *testing.T) {
	t.Run("short table", func(t *testing.T) {
		table := NewWeeklyTable()[:10]
		assert.Error(t, table.Validate())
	})

	t.Run("misnumbered week", func(t *testing.T) {
		table := NewWeeklyTable()
		table[4].Week = 99
		assert.Error(t, table.Validate())
	})

	t.Run("negative volume", func(t *testing.T) {
		table := NewWeeklyTable()
		table[0].WOVolume = -1
		assert.Error(t, table.Validate())
	})
}

func TestWeeklyTableRow(t *testing.T) {
	table := NewWeeklyTable()

	row := table.Row(10)
	require.NotNil(t, row)
	row.WOVolume = 7
	assert.Equal(t, 7, table[9].WOVolume, "Row must point into the table")

	assert.Nil(t, table.Row(0))
	assert.Nil(t, table.Row(53))
}

func TestWeeklySummaryCSVRow(t *testing.T) {
	row := WeeklySummary{
		Week:      10,
		ReturnPct: 16.67,
		MTTRHours: Float(12.25),
		WOVolume:  4,
		PctLeq24:  Float(75),
		PctLeq48:  Float(100),
	}

	cells := row.ToCSVRow()
	assert.Equal(t, []string{"10", "16.67", "12.25", "4", "75.00", "100.00"}, cells)

	parsed, err := WeeklySummaryFromCSVRow(cells)
	require.NoError(t, err)
	assert.Equal(t, row, parsed)
}

func TestWeeklySummaryCSVRowAbsentMetrics(t *testing.T) {
	row := WeeklySummary{Week: 3}

	cells := row.ToCSVRow()
	assert.Equal(t, []string{"3", "0.00", "", "0", "", ""}, cells)

	parsed, err := WeeklySummaryFromCSVRow(cells)
	require.NoError(t, err)
	assert.Nil(t, parsed.MTTRHours)
	assert.Nil(t, parsed.PctLeq24)
	assert.Nil(t, parsed.PctLeq48)
	assert.False(t, parsed.HasVolume())
}

func TestWeeklySummaryFromCSVRowErrors(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"wrong width", []string{"1", "0.00"}},
		{"bad week", []string{"x", "0.00", "", "0", "", ""}},
		{"bad volume", []string{"1", "0.00", "", "many", "", ""}},
		{"bad optional", []string{"1", "0.00", "soon", "0", "", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WeeklySummaryFromCSVRow(tt.row)
			assert.Error(t, err)
		})
	}
}

func TestWeeklySummaryFromCSVRowFloatVolume(t *testing.T) {
	// Spreadsheet tooling re-saves integer volumes as "4.0".
	parsed, err := WeeklySummaryFromCSVRow([]string{"1", "0.00", "", "4.0", "", ""})
	require.NoError(t, err)
	assert.Equal(t, 4, parsed.WOVolume)
}

func TestWeeklyTableClone(t *testing.T) {
	table := NewWeeklyTable()
	table.Row(5).MTTRHours = Float(8)
	table.Row(5).WOVolume = 2

	clone := table.Clone()
	require.Equal(t, table, clone)

	*clone.Row(5).MTTRHours = 99
	clone.Row(5).WOVolume = 50
	assert.Equal(t, 8.0, *table.Row(5).MTTRHours)
	assert.Equal(t, 2, table.Row(5).WOVolume)
}
