package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// WeeksPerYear is the fixed number of rows in every weekly table. The rollup
// always covers weeks 1..52; ISO week 53 folds into week 52 upstream.
const WeeksPerYear = 52

// WeeklySummaryHeader is the persisted-format column contract for weekly
// tables. External layers serialize tables to CSV/Excel with exactly these
// headers in exactly this order; changing them breaks every stored master.
var WeeklySummaryHeader = []string{
	"Week",
	"Weekly Return %",
	"MTTR (hrs)",
	"WO Volume",
	"% ≤24 hrs",
	"% ≤48 hrs",
}

// WeeklySummary is one row of the 52-week rollup.
//
// Optional metrics are pointers: nil means "no data" (the week had zero work
// orders, or no work order had a usable time-to-repair), which is distinct
// from a real 0.0. ReturnPct has no absent state: a week with volume but no
// returns and a week with no data both report 0.00.
type WeeklySummary struct {
	Week      int      `json:"week"`
	ReturnPct float64  `json:"weekly_return_pct"`
	MTTRHours *float64 `json:"mttr_hrs,omitempty"`
	WOVolume  int      `json:"wo_volume"`
	PctLeq24  *float64 `json:"pct_leq_24h,omitempty"`
	PctLeq48  *float64 `json:"pct_leq_48h,omitempty"`
}

// HasVolume reports whether the week recorded any work orders.
func (s WeeklySummary) HasVolume() bool {
	return s.WOVolume > 0
}

// ToCSVRow serializes the row following the persisted-format contract: week
// and volume as integers, percentages with two decimals, MTTR at full
// precision, absent metrics as empty cells.
func (s WeeklySummary) ToCSVRow() []string {
	return []string{
		strconv.Itoa(s.Week),
		strconv.FormatFloat(s.ReturnPct, 'f', 2, 64),
		formatOptional(s.MTTRHours, -1),
		strconv.Itoa(s.WOVolume),
		formatOptional(s.PctLeq24, 2),
		formatOptional(s.PctLeq48, 2),
	}
}

// WeeklySummaryFromCSVRow parses a persisted row. Cells are trimmed; empty
// optional cells become nil. The row must have exactly the contract width.
func WeeklySummaryFromCSVRow(row []string) (WeeklySummary, error) {
	if len(row) != len(WeeklySummaryHeader) {
		return WeeklySummary{}, fmt.Errorf("weekly row has %d cells, want %d", len(row), len(WeeklySummaryHeader))
	}

	week, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("parse week %q: %w", row[0], err)
	}

	returnPct, err := parseFloatCell(row[1])
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("parse return %% %q: %w", row[1], err)
	}

	mttr, err := parseOptionalCell(row[2])
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("parse MTTR %q: %w", row[2], err)
	}

	volume, err := parseVolumeCell(row[3])
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("parse volume %q: %w", row[3], err)
	}

	leq24, err := parseOptionalCell(row[4])
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("parse ≤24h %q: %w", row[4], err)
	}

	leq48, err := parseOptionalCell(row[5])
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("parse ≤48h %q: %w", row[5], err)
	}

	return WeeklySummary{
		Week:      week,
		ReturnPct: returnPct,
		MTTRHours: mttr,
		WOVolume:  volume,
		PctLeq24:  leq24,
		PctLeq48:  leq48,
	}, nil
}

// WeeklyTable is a dense 52-row rollup: exactly one row per week 1..52, in
// ascending week order. The zero value is not valid; use NewWeeklyTable.
type WeeklyTable []WeeklySummary

// NewWeeklyTable returns a blank dense table with every week present, zero
// volume and all optional metrics absent.
func NewWeeklyTable() WeeklyTable {
	t := make(WeeklyTable, WeeksPerYear)
	for i := range t {
		t[i] = WeeklySummary{Week: i + 1}
	}
	return t
}

// Row returns a pointer to the summary for the given week, or nil when the
// week is out of range.
func (t WeeklyTable) Row(week int) *WeeklySummary {
	if week < 1 || week > len(t) {
		return nil
	}
	return &t[week-1]
}

// ActiveWeeks returns the ascending list of weeks with WO volume > 0.
func (t WeeklyTable) ActiveWeeks() []int {
	var weeks []int
	for _, row := range t {
		if row.HasVolume() {
			weeks = append(weeks, row.Week)
		}
	}
	return weeks
}

// TotalVolume sums WO volume across all weeks.
func (t WeeklyTable) TotalVolume() int {
	total := 0
	for _, row := range t {
		total += row.WOVolume
	}
	return total
}

// Validate checks the dense invariant: 52 rows, weeks 1..52 ascending with
// no gaps or duplicates, and no negative volume.
func (t WeeklyTable) Validate() error {
	if len(t) != WeeksPerYear {
		return fmt.Errorf("weekly table has %d rows, want %d", len(t), WeeksPerYear)
	}
	for i, row := range t {
		if row.Week != i+1 {
			return fmt.Errorf("row %d has week %d, want %d", i, row.Week, i+1)
		}
		if row.WOVolume < 0 {
			return fmt.Errorf("week %d has negative WO volume %d", row.Week, row.WOVolume)
		}
	}
	return nil
}

// Clone returns a deep copy of the table. Optional metric pointers are
// re-allocated so mutating the copy never aliases the original.
func (t WeeklyTable) Clone() WeeklyTable {
	out := make(WeeklyTable, len(t))
	for i, row := range t {
		out[i] = WeeklySummary{
			Week:      row.Week,
			ReturnPct: row.ReturnPct,
			WOVolume:  row.WOVolume,
			MTTRHours: cloneFloat(row.MTTRHours),
			PctLeq24:  cloneFloat(row.PctLeq24),
			PctLeq48:  cloneFloat(row.PctLeq48),
		}
	}
	return out
}

// Float returns a pointer to v, for building optional metric fields.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func formatOptional(v *float64, precision int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}

func parseFloatCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	return strconv.ParseFloat(cell, 64)
}

func parseOptionalCell(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseVolumeCell(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	// Older masters saved by spreadsheet tools sometimes carry "3.0".
	if v, err := strconv.Atoi(cell); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
