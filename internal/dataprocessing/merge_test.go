package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetpulse/pkg/contracts/domain"
)

// mkTable builds a dense table with the given weeks active. Each active week
// gets a volume of 10*week and a return percentage of float64(week) so rows
// from different tables are distinguishable in assertions.
func mkTable(activeWeeks ...int) domain.WeeklyTable {
	t := domain.NewWeeklyTable()
	for _, week := range activeWeeks {
		row := t.Row(week)
		row.WOVolume = 10 * week
		row.ReturnPct = float64(week)
		row.MTTRHours = domain.Float(float64(week) + 0.5)
	}
	return t
}

func TestOverlappingActiveWeeks(t *testing.T) {
	tests := []struct {
		name     string
		master   []int
		incoming []int
		want     []int
	}{
		{"disjoint sets", []int{1, 2}, []int{10, 11}, nil},
		{"partial overlap", []int{9, 10, 11}, []int{10, 11, 12}, []int{10, 11}},
		{"identical sets", []int{5, 6}, []int{5, 6}, []int{5, 6}},
		{"empty incoming", []int{5}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			master := mkTable(tt.master...)
			incoming := mkTable(tt.incoming...)
			assert.Equal(t, tt.want, OverlappingActiveWeeks(&master, incoming))
		})
	}
}

func TestOverlappingActiveWeeksNilMaster(t *testing.T) {
	incoming := mkTable(10, 11)
	assert.Nil(t, OverlappingActiveWeeks(nil, incoming))
}

func TestMergeWithoutMasterAdoptsIncoming(t *testing.T) {
	incoming := mkTable(10, 11)

	result := Merge(nil, incoming, nil)

	require.NoError(t, result.Table.Validate())
	assert.Equal(t, incoming, result.Table)
	assert.Equal(t, []int{10, 11}, result.AdoptedWeeks)
	assert.Empty(t, result.PreservedWeeks)

	// The result must not alias the incoming table's pointers.
	*result.Table.Row(10).MTTRHours = 999
	assert.Equal(t, 10.5, *incoming.Row(10).MTTRHours)
}

func TestMergePreservesUnselectedOverlapWeeks(t *testing.T) {
	master := mkTable(9, 10, 11)
	incoming := mkTable(10, 11, 12)

	result := Merge(&master, incoming, map[int]bool{11: true})

	require.NoError(t, result.Table.Validate())
	// Week 10 overlaps and was not selected: master's row survives.
	assert.Equal(t, 100, result.Table.Row(10).WOVolume)
	// Week 11 overlaps and was selected: incoming wins.
	assert.Equal(t, 110, result.Table.Row(11).WOVolume)
	// Week 9 exists only in the master, week 12 only in the upload.
	assert.Equal(t, 90, result.Table.Row(9).WOVolume)
	assert.Equal(t, 120, result.Table.Row(12).WOVolume)

	assert.Equal(t, []int{11, 12}, result.AdoptedWeeks)
	assert.Equal(t, []int{10}, result.PreservedWeeks)
	assert.Empty(t, result.MissingWeeks)
}

func TestMergeEmptyOverwriteSetKeepsAllMasterOverlap(t *testing.T) {
	master := mkTable(10, 11)
	incoming := mkTable(10, 11)

	result := Merge(&master, incoming, nil)

	require.NoError(t, result.Table.Validate())
	assert.Equal(t, master, result.Table)
	assert.Equal(t, []int{10, 11}, result.PreservedWeeks)
	assert.Empty(t, result.AdoptedWeeks)
}

func TestMergeInactiveIncomingWeekNeverClobbersMaster(t *testing.T) {
	master := mkTable(10)
	incoming := mkTable(20)

	result := Merge(&master, incoming, nil)

	// Incoming week 10 is blank; the master's data must survive even
	// though nothing flagged the week for preservation.
	assert.Equal(t, 100, result.Table.Row(10).WOVolume)
	assert.Equal(t, 200, result.Table.Row(20).WOVolume)
	assert.Equal(t, []int{20}, result.AdoptedWeeks)
}

func TestMergeFillsWeeksMissingFromBothInputs(t *testing.T) {
	// Short, non-dense inputs model a corrupt stored master. The merge
	// must still emit a dense table and report the holes.
	master := mkTable(3)[:5]
	incoming := mkTable(7)[:8]

	result := Merge(&master, incoming, nil)

	require.NoError(t, result.Table.Validate())
	assert.Equal(t, 30, result.Table.Row(3).WOVolume)
	assert.Equal(t, 70, result.Table.Row(7).WOVolume)

	require.NotEmpty(t, result.MissingWeeks)
	assert.Equal(t, 9, result.MissingWeeks[0])
	assert.Equal(t, 52, result.MissingWeeks[len(result.MissingWeeks)-1])
	for _, week := range result.MissingWeeks {
		row := result.Table.Row(week)
		assert.False(t, row.HasVolume())
		assert.Nil(t, row.MTTRHours)
	}
}
