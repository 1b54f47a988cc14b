package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetpulse/pkg/contracts/domain"
)

func TestSummarizeRecentEmptyMaster(t *testing.T) {
	assert.Nil(t, SummarizeRecent(domain.NewWeeklyTable()))
}

func TestSummarizeRecentUsesTrailingWindow(t *testing.T) {
	master := domain.NewWeeklyTable()

	set := func(week int, ret float64, volume int, mttr, leq24, leq48 *float64) {
		row := master.Row(week)
		row.ReturnPct = ret
		row.WOVolume = volume
		row.MTTRHours = mttr
		row.PctLeq24 = leq24
		row.PctLeq48 = leq48
	}

	// Six active weeks; only the last four may enter the summary.
	set(10, 99, 5, domain.Float(1), domain.Float(100), domain.Float(100))
	set(11, 99, 5, domain.Float(1), domain.Float(100), domain.Float(100))
	set(12, 10, 10, domain.Float(5), domain.Float(80), domain.Float(100))
	set(13, 20, 20, domain.Float(15), domain.Float(50), domain.Float(75))
	set(14, 30, 10, domain.Float(25), domain.Float(100), domain.Float(100))
	set(15, 40, 10, nil, nil, nil)

	s := SummarizeRecent(master)
	require.NotNil(t, s)

	assert.Equal(t, []int{12, 13, 14, 15}, s.Weeks)
	assert.Equal(t, 25.0, s.AvgReturn)
	assert.Equal(t, 50, s.TotalVolume)

	require.NotNil(t, s.MedianMTTR)
	assert.Equal(t, 15.0, *s.MedianMTTR)

	// Closure counts are pooled against each week's volume, so the busy
	// week 13 outweighs the others: (8+10+10)/40 and (10+15+10)/40.
	require.NotNil(t, s.PctLeq24)
	assert.Equal(t, 70.0, *s.PctLeq24)
	require.NotNil(t, s.PctLeq48)
	assert.Equal(t, 87.5, *s.PctLeq48)
}

func TestSummarizeRecentFewerActiveWeeksThanWindow(t *testing.T) {
	master := domain.NewWeeklyTable()
	row := master.Row(7)
	row.ReturnPct = 12.5
	row.WOVolume = 4

	s := SummarizeRecent(master)
	require.NotNil(t, s)

	assert.Equal(t, []int{7}, s.Weeks)
	assert.Equal(t, 12.5, s.AvgReturn)
	assert.Equal(t, 4, s.TotalVolume)
	assert.Nil(t, s.MedianMTTR)
	assert.Nil(t, s.PctLeq24)
	assert.Nil(t, s.PctLeq48)
}
