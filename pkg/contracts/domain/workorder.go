package domain

import (
	"time"
)

// RawTable is one uploaded maintenance export as a plain grid of strings.
// The schema is unknown a priori: column names and order come from whatever
// the upstream EAM system happened to emit. The normalizer maps it onto the
// fixed internal schema by fuzzy header matching.
type RawTable struct {
	// Headers are the column names exactly as found in the source sheet.
	Headers []string

	// Rows are the data rows, each cell as its string representation.
	// Rows may be ragged; missing trailing cells are treated as empty.
	Rows [][]string
}

// ColumnCount returns the number of header columns.
func (t RawTable) ColumnCount() int {
	return len(t.Headers)
}

// Cell returns the cell for a row at the given column index, or "" when the
// row is shorter than the header.
func (t RawTable) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// Day is a calendar date, the date part of a completion timestamp.
// It is a comparable value type so it can key the per-day grouping maps.
type Day struct {
	Year  int
	Month time.Month
	Date  int
}

// DayOf extracts the calendar date from a timestamp.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Date: d}
}

// Time returns the day as a UTC midnight timestamp.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Date, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is earlier than other.
func (d Day) Before(other Day) bool {
	return d.Time().Before(other.Time())
}

// String formats the day as ISO 8601 (2006-01-02).
func (d Day) String() string {
	return d.Time().Format("2006-01-02")
}

// MaintenanceRecord is one normalized maintenance work-order row.
// Records are produced by the normalizer from a RawTable; every record has a
// completion timestamp (rows without one are dropped during normalization
// because weekly bucketing anchors on it).
type MaintenanceRecord struct {
	// WorkOrder is the work order identifier from the export.
	WorkOrder string `json:"work_order"`

	// Equipment is the raw equipment identifier string.
	Equipment string `json:"equipment"`

	// Type is the lowercased work type (breakdown, corrective, pm, ...).
	Type string `json:"type"`

	// AssignedTo is the technician the work order was assigned to.
	AssignedTo string `json:"assigned_to"`

	// DateReported is when the issue was reported. Nil when the source cell
	// was missing or unparseable; time-to-repair is then unknown.
	DateReported *time.Time `json:"date_reported,omitempty"`

	// DateCompleted is when the service was completed. Always set.
	DateCompleted time.Time `json:"date_completed"`

	// AssetNumber is the best-effort unit identifier extracted from
	// Equipment: a trailing 5-6 digit run, else any 4-6 digit run, else the
	// equipment string verbatim.
	AssetNumber string `json:"asset_number"`

	// Day is the calendar date of DateCompleted.
	Day Day `json:"day"`

	// ISOWeek is the ISO calendar week of DateCompleted capped into [1,52];
	// week 53 folds into 52.
	ISOWeek int `json:"iso_week"`
}

// DedupKey identifies a record for same-technician duplicate removal: the
// same work order on the same asset by the same technician on the same day
// counts at most once.
type DedupKey struct {
	WorkOrder  string
	Asset      string
	AssignedTo string
	Day        Day
}

// DedupKeyOf builds the 4-tuple deduplication key for a record.
func DedupKeyOf(r MaintenanceRecord) DedupKey {
	return DedupKey{
		WorkOrder:  r.WorkOrder,
		Asset:      r.AssetNumber,
		AssignedTo: r.AssignedTo,
		Day:        r.Day,
	}
}
