// Command processor computes a 52-week work-order rollup from a weekly
// maintenance export without starting the web server. It runs the same
// parse, normalize and aggregate pipeline the server uses and writes the
// result as CSV (and optionally as a formatted workbook).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fleetpulse/internal/dataprocessing"
	"fleetpulse/internal/exporter"
	"fleetpulse/internal/validation"
	"fleetpulse/pkg/contracts/domain"
)

func main() {
	inPath := flag.String("in", "", "input .xlsx export to process (required)")
	outPath := flag.String("out", "", "output CSV path (defaults to <input>_rollup.csv)")
	xlsxPath := flag.String("xlsx", "", "optional formatted workbook output path")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: processor -in <export.xlsx> [-out rollup.csv] [-xlsx rollup.xlsx]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateExportFile(*inPath); err != nil {
		logger.Error("Input validation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	table, recordCount, err := processWorkbook(*inPath, logger)
	if err != nil {
		logger.Error("Processing failed", slog.String("input", *inPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Output paths are made absolute up front, so the exporter never falls
	// back to the server directory layout.
	csvOut := deriveOutputPath(*inPath, *outPath)
	if err := validator.ValidateOutputDirectory(filepath.Dir(csvOut)); err != nil {
		logger.Error("Output validation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	weeklyExporter := exporter.NewWeeklyExporter(nil)
	if err := weeklyExporter.ExportWeeklyCSV(table, csvOut); err != nil {
		logger.Error("CSV export failed", slog.String("output", csvOut), slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *xlsxPath != "" {
		workbookExporter := exporter.NewWorkbookExporter()
		if err := workbookExporter.ExportWorkbook(table, *xlsxPath); err != nil {
			logger.Error("Workbook export failed", slog.String("output", *xlsxPath), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("Rollup complete",
		slog.String("input", *inPath),
		slog.String("output", csvOut),
		slog.Int("records", recordCount),
		slog.Int("active_weeks", len(table.ActiveWeeks())),
		slog.Int("total_volume", table.TotalVolume()))
}

// processWorkbook runs the full pipeline over a single export file and
// returns the dense weekly table plus the number of usable records.
func processWorkbook(path string, logger *slog.Logger) (domain.WeeklyTable, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	raw, err := dataprocessing.ParseWorkbook(f)
	if err != nil {
		return nil, 0, fmt.Errorf("parse workbook: %w", err)
	}

	records := dataprocessing.NewNormalizer(logger).Normalize(raw)
	table := dataprocessing.NewAggregator(logger).Aggregate(records)
	return table, len(records), nil
}

// deriveOutputPath picks the CSV destination: the explicit -out flag when
// given, otherwise the input filename with a _rollup.csv suffix.
func deriveOutputPath(inPath, outPath string) string {
	if outPath != "" {
		return absOrSelf(outPath)
	}
	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	return absOrSelf(filepath.Join(filepath.Dir(inPath), base+"_rollup.csv"))
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
