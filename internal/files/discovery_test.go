package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestFindUploads(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"upload_20240311_083000.xlsx",
		"upload_20240318_090000.xlsx",
		"upload_20240311_083000_2.xlsx",
		"master_weeks.csv",
		"notes.txt",
	)

	uploads, err := NewDiscovery(dir).FindUploads(dir)
	require.NoError(t, err)

	require.Len(t, uploads, 3)
	assert.Contains(t, uploads, "20240311_083000")
	assert.Contains(t, uploads, "20240311_083000_2")
	assert.Contains(t, uploads, "20240318_090000")
}

func TestFindSnapshotsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"master_weeks_20240311_083000.csv",
		"master_weeks_20240318_090000.csv",
		"weekly_rollup.csv",
	)

	snapshots, err := NewDiscovery(dir).FindSnapshots(dir)
	require.NoError(t, err)

	require.Len(t, snapshots, 2)
	assert.Equal(t, "master_weeks_20240318_090000.csv", snapshots[0].Name)
	assert.Equal(t, "master_weeks_20240311_083000.csv", snapshots[1].Name)
}

func TestFindExcelFilesMissingDir(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindExcelFiles("nope")
	assert.Error(t, err)
}

func TestFilterFilesByDateRange(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)
	}
	files := []FileInfo{
		{Name: "a", ModTime: day(10)},
		{Name: "b", ModTime: day(15)},
		{Name: "c", ModTime: day(20)},
	}

	both := FilterFilesByDateRange(files, day(12), day(18))
	require.Len(t, both, 1)
	assert.Equal(t, "b", both[0].Name)

	// Open-ended ranges keep everything on the unbounded side.
	fromOnly := FilterFilesByDateRange(files, day(12), time.Time{})
	assert.Len(t, fromOnly, 2)

	toOnly := FilterFilesByDateRange(files, time.Time{}, day(18))
	assert.Len(t, toOnly, 2)
}
