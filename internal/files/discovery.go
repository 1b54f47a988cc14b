package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindExcelFiles finds all Excel files in the specified directory, oldest
// first.
func (d *Discovery) FindExcelFiles(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    filepath.Join(fullPath, name),
				Name:    name,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				IsDir:   false,
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// FindCSVFiles finds all CSV files in the specified directory
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(strings.ToLower(name), ".csv") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    filepath.Join(fullPath, name),
				Name:    name,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				IsDir:   false,
			})
		}
	}

	return files, nil
}

// FindUploads finds saved upload workbooks (upload_YYYYMMDD_HHMMSS.xlsx),
// keyed by their timestamp component.
func (d *Discovery) FindUploads(dir string) (map[string]FileInfo, error) {
	files, err := d.FindExcelFiles(dir)
	if err != nil {
		return nil, err
	}

	uploads := make(map[string]FileInfo)
	for _, file := range files {
		if strings.HasPrefix(file.Name, "upload_") {
			stamp := strings.TrimPrefix(file.Name, "upload_")
			stamp = strings.TrimSuffix(stamp, filepath.Ext(stamp))
			uploads[stamp] = file
		}
	}

	return uploads, nil
}

// FindSnapshots finds master snapshot files (master_weeks_YYYYMMDD_HHMMSS.csv)
// in the history directory, newest first.
func (d *Discovery) FindSnapshots(dir string) ([]FileInfo, error) {
	files, err := d.FindCSVFiles(dir)
	if err != nil {
		return nil, err
	}

	var snapshots []FileInfo
	for _, file := range files {
		if strings.HasPrefix(file.Name, "master_weeks_") {
			snapshots = append(snapshots, file)
		}
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name > snapshots[j].Name
	})

	return snapshots, nil
}

// FilterFilesByDateRange filters files based on modification time. A zero
// bound leaves that side of the range open.
func FilterFilesByDateRange(files []FileInfo, startDate, endDate time.Time) []FileInfo {
	var filtered []FileInfo
	for _, file := range files {
		if !startDate.IsZero() && file.ModTime.Before(startDate) {
			continue
		}
		if !endDate.IsZero() && file.ModTime.After(endDate) {
			continue
		}
		filtered = append(filtered, file)
	}
	return filtered
}
