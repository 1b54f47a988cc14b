package dataprocessing

import (
	"log/slog"
	"math"
	"sort"

	"fleetpulse/pkg/contracts/domain"
)

// Aggregator rolls normalized maintenance records up into the dense 52-week
// summary table. It is a pure function of its input: no state is carried
// between calls, so the same records always produce the same table.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator. A nil logger falls back to the default.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger.With(slog.String("component", "aggregator"))}
}

// pairKey identifies one unit-technician service on a day.
type pairKey struct {
	Asset      string
	AssignedTo string
}

// assetDayKey groups records for same-day return detection.
type assetDayKey struct {
	Day   domain.Day
	Asset string
}

// weekOrderKey identifies a distinct work order within a week.
type weekOrderKey struct {
	Week      int
	WorkOrder string
}

// Aggregate computes the 52-week rollup.
//
// Return metrics come from the deduplicated record set (one row per
// work-order/asset/technician/day tuple); work-order volume and
// time-to-repair come from the full set grouped by distinct work order. The
// day-to-week mapping is sourced from the full normalized set so every day
// that appears anywhere maps to a week, even when deduplication narrows the
// rows used for return counting.
func (a *Aggregator) Aggregate(records []domain.MaintenanceRecord) domain.WeeklyTable {
	deduped := dedupeRecords(records)
	dayWeek := dayWeekIndex(records)

	completions := dailyCompletions(deduped)
	returns := dailyReturns(deduped)

	weeklyReturn := weeklyReturnPct(completions, returns, dayWeek)
	ttrByOrder := orderTTRHours(records)

	table := domain.NewWeeklyTable()
	for week := 1; week <= domain.WeeksPerYear; week++ {
		row := table.Row(week)
		row.WOVolume = len(ttrByOrder[week])
		if pct, ok := weeklyReturn[week]; ok {
			row.ReturnPct = round2(pct)
		}
		row.MTTRHours = weekMedianTTR(ttrByOrder[week])
		row.PctLeq24 = weekClosurePct(ttrByOrder[week], 24)
		row.PctLeq48 = weekClosurePct(ttrByOrder[week], 48)
	}

	a.logger.Info("aggregated weekly rollup",
		slog.Int("records", len(records)),
		slog.Int("records_deduped", len(deduped)),
		slog.Int("active_weeks", len(table.ActiveWeeks())),
		slog.Int("total_volume", table.TotalVolume()))

	return table
}

// dedupeRecords drops duplicate (work_order, asset, assigned_to, day) tuples,
// keeping the first occurrence.
func dedupeRecords(records []domain.MaintenanceRecord) []domain.MaintenanceRecord {
	seen := make(map[domain.DedupKey]struct{}, len(records))
	out := make([]domain.MaintenanceRecord, 0, len(records))
	for _, rec := range records {
		key := domain.DedupKeyOf(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// dayWeekIndex maps each calendar day to its ISO week, from the full
// normalized set (not the deduplicated one).
func dayWeekIndex(records []domain.MaintenanceRecord) map[domain.Day]int {
	index := make(map[domain.Day]int)
	for _, rec := range records {
		if _, ok := index[rec.Day]; !ok {
			index[rec.Day] = rec.ISOWeek
		}
	}
	return index
}

// dailyCompletions counts distinct (asset, technician) pairs per day: how
// many unit-technician services happened that day, not the raw row count.
func dailyCompletions(deduped []domain.MaintenanceRecord) map[domain.Day]int {
	pairs := make(map[domain.Day]map[pairKey]struct{})
	for _, rec := range deduped {
		key := pairKey{Asset: rec.AssetNumber, AssignedTo: rec.AssignedTo}
		if pairs[rec.Day] == nil {
			pairs[rec.Day] = make(map[pairKey]struct{})
		}
		pairs[rec.Day][key] = struct{}{}
	}

	counts := make(map[domain.Day]int, len(pairs))
	for day, set := range pairs {
		counts[day] = len(set)
	}
	return counts
}

// dailyReturns counts returned assets per day. An asset is a return on a day
// iff it was serviced more than once that day by two or more distinct
// technicians; a single technician redoing their own work is not a return.
func dailyReturns(deduped []domain.MaintenanceRecord) map[domain.Day]int {
	type occurrence struct {
		count int
		techs map[string]struct{}
	}

	grouped := make(map[assetDayKey]*occurrence)
	for _, rec := range deduped {
		key := assetDayKey{Day: rec.Day, Asset: rec.AssetNumber}
		occ := grouped[key]
		if occ == nil {
			occ = &occurrence{techs: make(map[string]struct{})}
			grouped[key] = occ
		}
		occ.count++
		occ.techs[rec.AssignedTo] = struct{}{}
	}

	returns := make(map[domain.Day]int)
	for key, occ := range grouped {
		if occ.count > 1 && len(occ.techs) >= 2 {
			returns[key.Day]++
		}
	}
	return returns
}

// weeklyReturnPct computes, per week, the arithmetic mean of the daily return
// percentages across that week's active days only. Days with zero completions
// are excluded from the average entirely, not treated as 0%.
func weeklyReturnPct(completions, returns map[domain.Day]int, dayWeek map[domain.Day]int) map[int]float64 {
	type acc struct {
		sum  float64
		days int
	}

	byWeek := make(map[int]*acc)
	for day, comps := range completions {
		if comps <= 0 {
			continue
		}
		week, ok := dayWeek[day]
		if !ok {
			continue
		}
		pct := float64(returns[day]) / float64(comps) * 100
		a := byWeek[week]
		if a == nil {
			a = &acc{}
			byWeek[week] = a
		}
		a.sum += pct
		a.days++
	}

	out := make(map[int]float64, len(byWeek))
	for week, a := range byWeek {
		out[week] = a.sum / float64(a.days)
	}
	return out
}

// orderTTRHours computes time-to-repair hours once per distinct work order
// per week, from the record first seen for that order. A nil entry means the
// order exists (it counts toward volume) but its TTR is unknown because the
// reported date was missing or unparseable.
func orderTTRHours(records []domain.MaintenanceRecord) map[int]map[string]*float64 {
	firstSeen := make(map[weekOrderKey]struct{}, len(records))
	byWeek := make(map[int]map[string]*float64)

	for _, rec := range records {
		key := weekOrderKey{Week: rec.ISOWeek, WorkOrder: rec.WorkOrder}
		if _, dup := firstSeen[key]; dup {
			continue
		}
		firstSeen[key] = struct{}{}

		if byWeek[rec.ISOWeek] == nil {
			byWeek[rec.ISOWeek] = make(map[string]*float64)
		}

		var ttr *float64
		if rec.DateReported != nil {
			hours := rec.DateCompleted.Sub(*rec.DateReported).Hours()
			ttr = &hours
		}
		byWeek[rec.ISOWeek][rec.WorkOrder] = ttr
	}

	return byWeek
}

// weekMedianTTR returns the median of the known TTR values for a week's
// distinct work orders, or nil when the week has no order with a known TTR.
func weekMedianTTR(orders map[string]*float64) *float64 {
	values := knownTTRs(orders)
	if len(values) == 0 {
		return nil
	}

	sort.Float64s(values)
	mid := len(values) / 2
	var median float64
	if len(values)%2 == 1 {
		median = values[mid]
	} else {
		median = (values[mid-1] + values[mid]) / 2
	}
	return &median
}

// weekClosurePct returns the percentage of a week's distinct work orders
// closed within the threshold, over orders with a known TTR. Nil when no
// order has a known TTR, which in particular covers zero-volume weeks.
func weekClosurePct(orders map[string]*float64, thresholdHours float64) *float64 {
	values := knownTTRs(orders)
	if len(values) == 0 {
		return nil
	}

	within := 0
	for _, v := range values {
		if v <= thresholdHours {
			within++
		}
	}
	pct := round2(float64(within) / float64(len(values)) * 100)
	return &pct
}

func knownTTRs(orders map[string]*float64) []float64 {
	values := make([]float64, 0, len(orders))
	for _, ttr := range orders {
		if ttr != nil {
			values = append(values, *ttr)
		}
	}
	return values
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
