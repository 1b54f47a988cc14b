package dataprocessing

import (
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"fleetpulse/internal/errors"
	"fleetpulse/pkg/contracts/domain"
)

// headerHints are substrings whose presence marks a row as the export's
// header row. EAM exports bury the table under title and filter rows, so the
// header is located by content, not by position.
var headerHints = []string{
	"work order", "work_order", "workorder", "wo ",
	"equipment", "asset",
	"completed", "closed",
	"reported", "opened",
	"assigned", "tech",
	"type",
}

// minHeaderHits is how many distinct hints a row must match to be accepted
// as the header row.
const minHeaderHits = 3

// ParseWorkbook reads an Excel maintenance export into a RawTable.
//
// The sheet containing the work-order table is discovered by scanning each
// sheet's leading rows for a plausible header; the first match wins. Cells
// stay untyped strings: interpreting them is the normalizer's job. A book
// with no tabular structure at all is a fatal parsing error.
func ParseWorkbook(r io.Reader) (domain.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.RawTable{}, errors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		headerRow := findHeaderRow(rows)
		if headerRow < 0 {
			continue
		}

		table := buildTable(rows, headerRow)
		slog.Info("found work-order table",
			slog.String("sheet", sheet),
			slog.Int("header_row", headerRow),
			slog.Int("data_rows", len(table.Rows)),
			slog.Int("columns", len(table.Headers)))
		return table, nil
	}

	return domain.RawTable{}, errors.NewParsingError("no work-order table found in workbook", nil)
}

// findHeaderRow scans the leading rows for one that matches enough header
// hints. Only the first 25 rows are considered; real exports never push the
// header deeper than that.
func findHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > 25 {
		limit = 25
	}

	for i := 0; i < limit; i++ {
		if countHeaderHits(rows[i]) >= minHeaderHits {
			return i
		}
	}
	return -1
}

// countHeaderHits counts distinct header hints matched by a row's cells.
func countHeaderHits(row []string) int {
	if len(row) < 2 {
		return 0
	}

	hits := 0
	matched := make(map[string]struct{}, len(headerHints))
	for _, cell := range row {
		lower := strings.ToLower(strings.TrimSpace(cell))
		if lower == "" {
			continue
		}
		for _, hint := range headerHints {
			if _, done := matched[hint]; done {
				continue
			}
			if strings.Contains(lower, hint) {
				matched[hint] = struct{}{}
				hits++
			}
		}
	}
	return hits
}

// buildTable slices out the data rows under the header, dropping all-empty
// rows and truncating ragged rows to the header width.
func buildTable(rows [][]string, headerRow int) domain.RawTable {
	headers := make([]string, len(rows[headerRow]))
	for i, h := range rows[headerRow] {
		headers[i] = strings.TrimSpace(h)
	}

	table := domain.RawTable{Headers: headers}
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if rowEmpty(row) {
			continue
		}
		if len(row) > len(headers) {
			row = row[:len(headers)]
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
