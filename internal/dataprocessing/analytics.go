package dataprocessing

import (
	"math"
	"sort"

	"fleetpulse/pkg/contracts/domain"
)

// RecentWindowWeeks is how many trailing active weeks the recent-period
// summary covers.
const RecentWindowWeeks = 4

// RecentSummary condenses the trailing active weeks of a master table into a
// single banner row for the dashboard.
type RecentSummary struct {
	Weeks       []int    `json:"weeks"`
	AvgReturn   float64  `json:"avg_return_pct"`
	MedianMTTR  *float64 `json:"median_mttr_hours,omitempty"`
	TotalVolume int      `json:"total_volume"`
	PctLeq24    *float64 `json:"pct_leq_24,omitempty"`
	PctLeq48    *float64 `json:"pct_leq_48,omitempty"`
}

// SummarizeRecent computes the summary over the last RecentWindowWeeks
// active weeks of master. Per-week closure percentages are converted back to
// counts against each week's volume so the pooled percentages weight busy
// weeks correctly instead of averaging percentages. Returns nil when the
// master has no active weeks.
func SummarizeRecent(master domain.WeeklyTable) *RecentSummary {
	active := master.ActiveWeeks()
	if len(active) == 0 {
		return nil
	}
	if len(active) > RecentWindowWeeks {
		active = active[len(active)-RecentWindowWeeks:]
	}

	s := &RecentSummary{Weeks: active}

	var returnSum float64
	var mttrs []float64
	var within24, within48, known24, known48 int

	for _, week := range active {
		row := master.Row(week)
		if row == nil {
			continue
		}
		returnSum += row.ReturnPct
		s.TotalVolume += row.WOVolume
		if row.MTTRHours != nil {
			mttrs = append(mttrs, *row.MTTRHours)
		}
		if row.PctLeq24 != nil {
			n := countFromPct(*row.PctLeq24, row.WOVolume)
			within24 += n
			known24 += row.WOVolume
		}
		if row.PctLeq48 != nil {
			n := countFromPct(*row.PctLeq48, row.WOVolume)
			within48 += n
			known48 += row.WOVolume
		}
	}

	s.AvgReturn = round2(returnSum / float64(len(active)))
	if len(mttrs) > 0 {
		sort.Float64s(mttrs)
		m := medianSorted(mttrs)
		s.MedianMTTR = &m
	}
	if known24 > 0 {
		p := round2(float64(within24) / float64(known24) * 100)
		s.PctLeq24 = &p
	}
	if known48 > 0 {
		p := round2(float64(within48) / float64(known48) * 100)
		s.PctLeq48 = &p
	}
	return s
}

// countFromPct reconstructs an integer count from a stored percentage and
// its denominator. Percentages were rounded to two decimals on the way in,
// so the recovered count is exact for realistic volumes.
func countFromPct(pct float64, volume int) int {
	return int(math.Round(pct / 100 * float64(volume)))
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
