package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"fleetpulse/internal/config"
	"fleetpulse/pkg/contracts/domain"
)

// SheetsMirror pushes the master table to a Google Sheets spreadsheet after
// every merge, so the fleet dashboard sheet always reflects the stored
// master. Mirroring is optional and best-effort: a failed push is logged and
// reported but never rolls back a merge.
type SheetsMirror struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// NewSheetsMirror creates a mirror from configuration. The credentials file
// is a Google service-account JSON key.
func NewSheetsMirror(ctx context.Context, cfg config.SheetsConfig, credentialsFile string, logger *slog.Logger) (*SheetsMirror, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets mirror requires a spreadsheet ID")
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Master"
	}

	return &SheetsMirror{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		logger:        logger.With(slog.String("component", "sheets_mirror")),
	}, nil
}

// Mirror replaces the sheet contents with the header row plus all 52 weekly
// rows.
func (m *SheetsMirror) Mirror(ctx context.Context, table domain.WeeklyTable) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("refusing to mirror invalid weekly table: %w", err)
	}

	values := make([][]interface{}, 0, len(table)+1)

	header := make([]interface{}, len(domain.WeeklySummaryHeader))
	for i, h := range domain.WeeklySummaryHeader {
		header[i] = h
	}
	values = append(values, header)

	for _, row := range table {
		values = append(values, summaryCells(row))
	}

	clearRange := fmt.Sprintf("%s!A:F", m.sheetName)
	if _, err := m.service.Spreadsheets.Values.Clear(m.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear sheet range: %w", err)
	}

	writeRange := fmt.Sprintf("%s!A1", m.sheetName)
	valueRange := &sheets.ValueRange{Values: values}
	if _, err := m.service.Spreadsheets.Values.Update(m.spreadsheetID, writeRange, valueRange).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update sheet values: %w", err)
	}

	m.logger.InfoContext(ctx, "mirrored master table to sheet",
		slog.String("spreadsheet_id", m.spreadsheetID),
		slog.String("sheet_name", m.sheetName),
		slog.Int("rows", len(values)))

	return nil
}
