// Package exporter writes 52-week rollup tables to their external formats.
//
// This package contains four main components:
//
// CSVWriter: Core CSV writing functionality with support for headers and
// UTF-8 BOM for Excel compatibility.
//
// WeeklyExporter: Writes the dense weekly table as a CSV result file using
// the persisted column contract.
//
// WorkbookExporter: Writes the weekly table as a downloadable .xlsx
// workbook with native numeric cells.
//
// SheetsMirror: Optionally mirrors the master table to a Google Sheets
// spreadsheet after each merge.
package exporter
