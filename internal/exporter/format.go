package exporter

import (
	"fleetpulse/pkg/contracts/domain"
)

// optionalCell converts an optional metric to a spreadsheet cell value.
// Absent metrics become empty cells, never 0.
func optionalCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// summaryCells converts a weekly row to native spreadsheet cell values,
// following the persisted-format column order.
func summaryCells(s domain.WeeklySummary) []interface{} {
	return []interface{}{
		s.Week,
		s.ReturnPct,
		optionalCell(s.MTTRHours),
		s.WOVolume,
		optionalCell(s.PctLeq24),
		optionalCell(s.PctLeq48),
	}
}
