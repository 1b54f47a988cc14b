package dataprocessing

import (
	"log/slog"
	"sort"

	"fleetpulse/pkg/contracts/domain"
)

// OverlappingActiveWeeks returns the ascending list of weeks where both the
// master and the incoming table recorded work-order volume. The caller
// surfaces this set to the user before invoking Merge, so the overwrite
// selection is always made against exactly the weeks that conflict.
func OverlappingActiveWeeks(master *domain.WeeklyTable, incoming domain.WeeklyTable) []int {
	if master == nil {
		return nil
	}

	masterActive := make(map[int]struct{})
	for _, row := range *master {
		if row.HasVolume() {
			masterActive[row.Week] = struct{}{}
		}
	}

	var overlap []int
	for _, row := range incoming {
		if !row.HasVolume() {
			continue
		}
		if _, ok := masterActive[row.Week]; ok {
			overlap = append(overlap, row.Week)
		}
	}
	sort.Ints(overlap)
	return overlap
}

// MergeResult is the outcome of reconciling an upload into the master.
type MergeResult struct {
	Table domain.WeeklyTable

	// AdoptedWeeks are weeks taken from the incoming table.
	AdoptedWeeks []int

	// PreservedWeeks are overlap weeks kept from the master because the
	// caller did not select them for overwrite.
	PreservedWeeks []int

	// MissingWeeks are weeks found in neither input, filled with a blank
	// placeholder carrying only the week number. Callers should surface
	// these as a data-completeness issue.
	MissingWeeks []int
}

// Merge reconciles an incoming weekly table into the master under the
// caller's overwrite selection.
//
// With no master the incoming table is adopted verbatim. Otherwise, per week:
// an overlap week not selected for overwrite keeps the master row; any other
// week where the incoming table has volume takes the incoming row; everything
// else keeps the master row. The output is always a dense 52-row table in
// ascending week order; no week is ever dropped.
func Merge(master *domain.WeeklyTable, incoming domain.WeeklyTable, overwriteWeeks map[int]bool) MergeResult {
	if master == nil {
		return MergeResult{
			Table:        incoming.Clone(),
			AdoptedWeeks: incoming.ActiveWeeks(),
		}
	}

	overlap := make(map[int]struct{})
	for _, week := range OverlappingActiveWeeks(master, incoming) {
		overlap[week] = struct{}{}
	}

	result := MergeResult{Table: domain.NewWeeklyTable()}
	for week := 1; week <= domain.WeeksPerYear; week++ {
		masterRow := master.Row(week)
		incomingRow := incoming.Row(week)
		out := result.Table.Row(week)

		_, overlaps := overlap[week]
		switch {
		case overlaps && !overwriteWeeks[week]:
			// Explicit preservation: the user chose to keep history.
			*out = *masterRow
			result.PreservedWeeks = append(result.PreservedWeeks, week)
		case incomingRow != nil && incomingRow.HasVolume():
			*out = *incomingRow
			result.AdoptedWeeks = append(result.AdoptedWeeks, week)
		case masterRow != nil:
			*out = *masterRow
		case incomingRow != nil:
			*out = *incomingRow
		default:
			// Neither input knows this week; leave the blank placeholder
			// and report it instead of fabricating values.
			result.MissingWeeks = append(result.MissingWeeks, week)
		}
		out.Week = week
	}

	result.Table = result.Table.Clone()

	slog.Debug("merged weekly tables",
		slog.Int("adopted", len(result.AdoptedWeeks)),
		slog.Int("preserved", len(result.PreservedWeeks)),
		slog.Int("missing", len(result.MissingWeeks)))

	return result
}
