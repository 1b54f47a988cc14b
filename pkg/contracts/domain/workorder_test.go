package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayOf(t *testing.T) {
	ts := time.Date(2024, 3, 11, 23, 59, 59, 0, time.UTC)
	day := DayOf(ts)

	assert.Equal(t, Day{Year: 2024, Month: time.March, Date: 11}, day)
	assert.Equal(t, "2024-03-11", day.String())
	assert.True(t, day.Before(DayOf(ts.Add(time.Second))))
	assert.False(t, day.Before(day))
}

func TestRawTableCell(t *testing.T) {
	table := RawTable{
		Headers: []string{"a", "b", "c"},
		Rows:    [][]string{{"1", "2"}},
	}

	assert.Equal(t, 3, table.ColumnCount())
	assert.Equal(t, "2", table.Cell(table.Rows[0], 1))
	assert.Equal(t, "", table.Cell(table.Rows[0], 2), "ragged row reads empty")
	assert.Equal(t, "", table.Cell(table.Rows[0], -1))
}

func TestDedupKeyOf(t *testing.T) {
	day := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	a := MaintenanceRecord{WorkOrder: "1", AssetNumber: "44281", AssignedTo: "t1", Day: DayOf(day)}
	b := MaintenanceRecord{WorkOrder: "1", AssetNumber: "44281", AssignedTo: "t1", Day: DayOf(day.Add(5 * time.Hour))}
	c := MaintenanceRecord{WorkOrder: "1", AssetNumber: "44281", AssignedTo: "t2", Day: DayOf(day)}

	assert.Equal(t, DedupKeyOf(a), DedupKeyOf(b), "same day different times collide")
	assert.NotEqual(t, DedupKeyOf(a), DedupKeyOf(c))
}
