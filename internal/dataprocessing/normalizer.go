package dataprocessing

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"fleetpulse/pkg/contracts/domain"
)

// includeTypes are the maintenance-category keywords that qualify a record
// even when the equipment string does not mention an iBot. Matching is
// case-insensitive substring per keyword.
var includeTypes = []string{
	"breakdown",
	"corrective",
	"preventive",
	"preventative",
	"pm",
	"inspection",
	"campaign",
}

// columnCandidates maps each target field to its candidate header substrings
// in priority order. The first candidate that matches a lowercased source
// header wins; unmatched fields become all-absent columns.
var columnCandidates = []struct {
	field      string
	candidates []string
}{
	{"work_order", []string{"work_order", "wo", "workorder", "work order"}},
	{"equipment", []string{"equipment", "asset", "equipment id", "asset id"}},
	{"type", []string{"type", "work_type", "work type", "wo_type"}},
	{"assigned_to", []string{"assigned_to", "assigned", "tech", "assigned to", "assignee"}},
	{"date_reported", []string{"date_reported", "reported", "opened", "date reported"}},
	{"date_completed", []string{"date_completed", "completed", "closed", "date completed"}},
}

// assetSuffixPattern prefers a trailing 5-6 digit run anchored at the end of
// the equipment string; assetAnyPattern is the fallback for any 4-6 digit run.
var (
	assetSuffixPattern = regexp.MustCompile(`(\d{5,6})$`)
	assetAnyPattern    = regexp.MustCompile(`(\d{4,6})`)
)

// dateLayouts are tried in order when parsing date cells. Exports come from
// uncontrolled spreadsheet tooling, so both ISO and US layouts appear, with
// and without a time component.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"02-Jan-2006 15:04:05",
	"02-Jan-2006",
	"2-Jan-06",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// Normalizer maps raw tabular exports onto the fixed internal schema.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer. A nil logger falls back to the default.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger.With(slog.String("component", "normalizer"))}
}

// Normalize converts a raw table into maintenance records.
//
// Malformed individual cells never fail the call: unparseable dates become
// absent, missing columns are synthesized as empty. A record is kept iff its
// equipment string contains "ibot" or its type matches a maintenance-category
// keyword, and it has a parseable completion date.
func (n *Normalizer) Normalize(table domain.RawTable) []domain.MaintenanceRecord {
	cols := n.inferColumns(table.Headers)

	records := make([]domain.MaintenanceRecord, 0, len(table.Rows))
	dropped := 0
	for _, row := range table.Rows {
		rec, ok := n.normalizeRow(table, cols, row)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	n.logger.Info("normalized raw table",
		slog.Int("rows_in", len(table.Rows)),
		slog.Int("records_out", len(records)),
		slog.Int("rows_dropped", dropped))

	return records
}

// columnIndex maps target field names to source column indices; -1 means the
// field was not found and reads as absent.
type columnIndex map[string]int

// inferColumns resolves each target field against the lowercased source
// headers. First candidate match wins, scanning headers left to right.
func (n *Normalizer) inferColumns(headers []string) columnIndex {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := make(columnIndex, len(columnCandidates))
	for _, target := range columnCandidates {
		cols[target.field] = -1
		for _, cand := range target.candidates {
			found := false
			for i, h := range lowered {
				if strings.Contains(h, cand) {
					cols[target.field] = i
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if cols[target.field] < 0 {
			n.logger.Warn("column not found in export, treating as absent",
				slog.String("field", target.field))
		}
	}
	return cols
}

func (n *Normalizer) normalizeRow(table domain.RawTable, cols columnIndex, row []string) (domain.MaintenanceRecord, bool) {
	cell := func(field string) string {
		idx, ok := cols[field]
		if !ok || idx < 0 {
			return ""
		}
		return strings.TrimSpace(table.Cell(row, idx))
	}

	equipment := cell("equipment")
	workType := strings.ToLower(cell("type"))

	if !includeRecord(equipment, workType) {
		return domain.MaintenanceRecord{}, false
	}

	completed, ok := parseDate(cell("date_completed"))
	if !ok {
		// Weekly bucketing anchors on the completion date.
		return domain.MaintenanceRecord{}, false
	}

	rec := domain.MaintenanceRecord{
		WorkOrder:     cell("work_order"),
		Equipment:     equipment,
		Type:          workType,
		AssignedTo:    cell("assigned_to"),
		DateCompleted: completed,
		AssetNumber:   ExtractAssetNumber(equipment),
		Day:           domain.DayOf(completed),
		ISOWeek:       isoWeekCapped(completed),
	}

	if reported, ok := parseDate(cell("date_reported")); ok {
		rec.DateReported = &reported
	}

	return rec, true
}

// includeRecord applies the inclusion invariant: equipment mentions an iBot,
// or the work type carries a maintenance-category keyword.
func includeRecord(equipment, workType string) bool {
	if strings.Contains(strings.ToLower(equipment), "ibot") {
		return true
	}
	for _, keyword := range includeTypes {
		if strings.Contains(workType, keyword) {
			return true
		}
	}
	return false
}

// ExtractAssetNumber derives the unit identifier from an equipment string.
// It prefers a 5-6 digit suffix, then any 4-6 digit run, and finally falls
// back to the equipment string itself. Deterministic and side-effect-free.
func ExtractAssetNumber(equipment string) string {
	if m := assetSuffixPattern.FindStringSubmatch(equipment); m != nil {
		return m[1]
	}
	if m := assetAnyPattern.FindStringSubmatch(equipment); m != nil {
		return m[1]
	}
	return equipment
}

// parseDate parses a date cell permissively against the known layouts.
// Returns false for empty or unparseable cells.
func parseDate(cell string) (time.Time, bool) {
	if cell == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isoWeekCapped returns the ISO calendar week of t capped into [1,52].
// ISO week 53 belongs to the year boundary and folds into 52 so the rollup
// stays a fixed 52-row table.
func isoWeekCapped(t time.Time) int {
	_, week := t.ISOWeek()
	if week > domain.WeeksPerYear {
		return domain.WeeksPerYear
	}
	if week < 1 {
		return 1
	}
	return week
}
