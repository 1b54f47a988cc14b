// Package history handles SQLite persistence for the upload and merge log.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Upload statuses recorded in the log.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// UploadRecord is one processed (or rejected) workbook upload.
type UploadRecord struct {
	ID           int64     `json:"id"`
	ReceivedAt   time.Time `json:"received_at"`
	OriginalName string    `json:"original_name"`
	SavedName    string    `json:"saved_name"`
	SizeBytes    int64     `json:"size_bytes"`
	RowCount     int       `json:"row_count"`
	ActiveWeeks  []int     `json:"active_weeks"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
}

// MergeRecord is one merge of an upload's rollup into the master table.
type MergeRecord struct {
	ID             int64     `json:"id"`
	MergedAt       time.Time `json:"merged_at"`
	UploadID       int64     `json:"upload_id"`
	AdoptedWeeks   []int     `json:"adopted_weeks"`
	PreservedWeeks []int     `json:"preserved_weeks,omitempty"`
	SnapshotPath   string    `json:"snapshot_path,omitempty"`
}

// Store wraps SQLite access for the upload and merge log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS uploads (
			id INTEGER PRIMARY KEY,
			received_at TEXT NOT NULL,
			original_name TEXT NOT NULL,
			saved_name TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			row_count INTEGER NOT NULL,
			active_weeks TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS merges (
			id INTEGER PRIMARY KEY,
			merged_at TEXT NOT NULL,
			upload_id INTEGER NOT NULL,
			adopted_weeks TEXT NOT NULL,
			preserved_weeks TEXT NOT NULL,
			snapshot_path TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (upload_id) REFERENCES uploads(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_received_at ON uploads(received_at);`,
		`CREATE INDEX IF NOT EXISTS idx_merges_merged_at ON merges(merged_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordUpload stores one upload log entry and returns its ID.
func (s *Store) RecordUpload(ctx context.Context, rec UploadRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (received_at, original_name, saved_name, size_bytes, row_count, active_weeks, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ReceivedAt.UTC().Format(time.RFC3339Nano),
		rec.OriginalName,
		rec.SavedName,
		rec.SizeBytes,
		rec.RowCount,
		joinWeeks(rec.ActiveWeeks),
		rec.Status,
		rec.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("insert upload record: %w", err)
	}
	return res.LastInsertId()
}

// GetUpload returns one upload by ID. Missing IDs return sql.ErrNoRows.
func (s *Store) GetUpload(ctx context.Context, id int64) (UploadRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, received_at, original_name, saved_name, size_bytes, row_count, active_weeks, status, error
		 FROM uploads WHERE id = ?`, id)
	return scanUpload(row)
}

// ListUploads returns the most recent uploads, newest first.
func (s *Store) ListUploads(ctx context.Context, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, received_at, original_name, saved_name, size_bytes, row_count, active_weeks, status, error
		 FROM uploads ORDER BY received_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var records []UploadRecord
	for rows.Next() {
		rec, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecordMerge stores one merge log entry and returns its ID.
func (s *Store) RecordMerge(ctx context.Context, rec MergeRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO merges (merged_at, upload_id, adopted_weeks, preserved_weeks, snapshot_path)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.MergedAt.UTC().Format(time.RFC3339Nano),
		rec.UploadID,
		joinWeeks(rec.AdoptedWeeks),
		joinWeeks(rec.PreservedWeeks),
		rec.SnapshotPath,
	)
	if err != nil {
		return 0, fmt.Errorf("insert merge record: %w", err)
	}
	return res.LastInsertId()
}

// ListMerges returns the most recent merges, newest first.
func (s *Store) ListMerges(ctx context.Context, limit int) ([]MergeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, merged_at, upload_id, adopted_weeks, preserved_weeks, snapshot_path
		 FROM merges ORDER BY merged_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query merges: %w", err)
	}
	defer rows.Close()

	var records []MergeRecord
	for rows.Next() {
		var rec MergeRecord
		var mergedAt, adopted, preserved string
		if err := rows.Scan(&rec.ID, &mergedAt, &rec.UploadID, &adopted, &preserved, &rec.SnapshotPath); err != nil {
			return nil, fmt.Errorf("scan merge record: %w", err)
		}
		rec.MergedAt, err = time.Parse(time.RFC3339Nano, mergedAt)
		if err != nil {
			return nil, fmt.Errorf("parse merged_at %q: %w", mergedAt, err)
		}
		rec.AdoptedWeeks, err = splitWeeks(adopted)
		if err != nil {
			return nil, err
		}
		rec.PreservedWeeks, err = splitWeeks(preserved)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (UploadRecord, error) {
	var rec UploadRecord
	var receivedAt, weeks string
	if err := row.Scan(&rec.ID, &receivedAt, &rec.OriginalName, &rec.SavedName,
		&rec.SizeBytes, &rec.RowCount, &weeks, &rec.Status, &rec.Error); err != nil {
		return UploadRecord{}, err
	}
	var err error
	rec.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt)
	if err != nil {
		return UploadRecord{}, fmt.Errorf("parse received_at %q: %w", receivedAt, err)
	}
	rec.ActiveWeeks, err = splitWeeks(weeks)
	if err != nil {
		return UploadRecord{}, err
	}
	return rec, nil
}

func joinWeeks(weeks []int) string {
	if len(weeks) == 0 {
		return ""
	}
	parts := make([]string, len(weeks))
	for i, w := range weeks {
		parts[i] = strconv.Itoa(w)
	}
	return strings.Join(parts, ",")
}

func splitWeeks(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	weeks := make([]int, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse week list %q: %w", s, err)
		}
		weeks = append(weeks, w)
	}
	return weeks, nil
}
