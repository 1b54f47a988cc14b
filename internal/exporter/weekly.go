package exporter

import (
	"fmt"
	"log/slog"

	"fleetpulse/internal/config"
	"fleetpulse/pkg/contracts/domain"
)

// WeeklyExporter writes 52-week rollup tables as CSV result files.
type WeeklyExporter struct {
	csvWriter *CSVWriter
}

// NewWeeklyExporter creates a new weekly exporter
func NewWeeklyExporter(paths *config.Paths) *WeeklyExporter {
	return &WeeklyExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// ExportWeeklyCSV writes the full dense table to outputPath using the
// persisted-format column contract. All 52 rows are written, including
// weeks with no volume.
func (e *WeeklyExporter) ExportWeeklyCSV(table domain.WeeklyTable, outputPath string) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("refusing to export invalid weekly table: %w", err)
	}

	records := make([][]string, 0, len(table))
	for _, row := range table {
		records = append(records, row.ToCSVRow())
	}

	if err := e.csvWriter.WriteSimpleCSV(outputPath, domain.WeeklySummaryHeader, records); err != nil {
		return fmt.Errorf("failed to export weekly table: %w", err)
	}

	slog.Info("Exported weekly table",
		slog.String("output_path", outputPath),
		slog.Int("active_weeks", len(table.ActiveWeeks())),
		slog.Int("total_volume", table.TotalVolume()))

	return nil
}
