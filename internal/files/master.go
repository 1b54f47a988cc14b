package files

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fleetpulse/internal/config"
	"fleetpulse/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MasterStore persists the merged master table as a CSV file. Saves are
// atomic: the table is written to a temp file in the same directory and
// renamed over the master, so a crash mid-write never leaves a torn file.
// Snapshot copies the current master into the history directory before a
// merge mutates it.
type MasterStore struct {
	mu    sync.Mutex
	paths *config.Paths
}

// NewMasterStore creates a store rooted at the configured data directory
func NewMasterStore(paths *config.Paths) *MasterStore {
	return &MasterStore{paths: paths}
}

// Exists reports whether a master table has been persisted.
func (s *MasterStore) Exists() bool {
	_, err := os.Stat(s.paths.MasterCSV)
	return err == nil
}

// Load reads the persisted master. A missing file returns (nil, nil), which
// callers treat as "no master yet".
func (s *MasterStore) Load() (domain.WeeklyTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.paths.MasterCSV)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read master file: %w", err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse master file: %w", err)
	}
	if len(rows) != domain.WeeksPerYear+1 {
		return nil, fmt.Errorf("master file has %d rows, want %d", len(rows), domain.WeeksPerYear+1)
	}

	table := make(domain.WeeklyTable, 0, domain.WeeksPerYear)
	for i, row := range rows[1:] {
		summary, err := domain.WeeklySummaryFromCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("master row %d: %w", i+2, err)
		}
		table = append(table, summary)
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("master file is corrupt: %w", err)
	}

	return table, nil
}

// Save atomically replaces the persisted master with table.
func (s *MasterStore) Save(table domain.WeeklyTable) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid master: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.paths.MasterCSV)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "master_weeks_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp master: %w", err)
	}
	tmpPath := tmp.Name()

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	writer := csv.NewWriter(&buf)
	if err := writer.Write(domain.WeeklySummaryHeader); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write master header: %w", err)
	}
	for _, row := range table {
		if err := writer.Write(row.ToCSVRow()); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to write master week %d: %w", row.Week, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush master rows: %w", err)
	}

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp master: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp master: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp master: %w", err)
	}

	if err := os.Rename(tmpPath, s.paths.MasterCSV); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace master file: %w", err)
	}

	slog.Info("Saved master table",
		slog.String("path", s.paths.MasterCSV),
		slog.Int("active_weeks", len(table.ActiveWeeks())),
		slog.Int("total_volume", table.TotalVolume()))

	return nil
}

// Snapshot copies the current master into the history directory. It returns
// the snapshot path, or empty when no master exists yet.
func (s *MasterStore) Snapshot(at time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.paths.MasterCSV)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read master for snapshot: %w", err)
	}

	snapPath := s.paths.GetSnapshotPath(at)
	if err := os.MkdirAll(filepath.Dir(snapPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := os.WriteFile(snapPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Snapshotted master table", slog.String("snapshot_path", snapPath))

	return snapPath, nil
}

// Clear removes the persisted master. Missing files are not an error.
func (s *MasterStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.paths.MasterCSV); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove master file: %w", err)
	}
	return nil
}
