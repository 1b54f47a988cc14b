package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"fleetpulse/pkg/contracts/domain"
)

// ResultsSheetName is the sheet holding the rollup in exported workbooks.
const ResultsSheetName = "Weeks 1-52"

// WorkbookExporter writes 52-week rollup tables as Excel workbooks for
// download. Values are written as native numbers so spreadsheet formulas
// keep working; absent metrics stay blank cells.
type WorkbookExporter struct{}

// NewWorkbookExporter creates a new workbook exporter
func NewWorkbookExporter() *WorkbookExporter {
	return &WorkbookExporter{}
}

// ExportWorkbook writes the table to an .xlsx file at outputPath.
func (e *WorkbookExporter) ExportWorkbook(table domain.WeeklyTable, outputPath string) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("refusing to export invalid weekly table: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheetName); err != nil {
		return fmt.Errorf("failed to name results sheet: %w", err)
	}

	header := make([]interface{}, len(domain.WeeklySummaryHeader))
	for i, h := range domain.WeeklySummaryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(ResultsSheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range table {
		cell := fmt.Sprintf("A%d", i+2)
		cells := summaryCells(row)
		if err := f.SetSheetRow(ResultsSheetName, cell, &cells); err != nil {
			return fmt.Errorf("failed to write week %d: %w", row.Week, err)
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	slog.Info("Exported weekly workbook",
		slog.String("output_path", outputPath),
		slog.Int("active_weeks", len(table.ActiveWeeks())))

	return nil
}
