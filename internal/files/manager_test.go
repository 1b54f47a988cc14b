package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveUpload(t *testing.T) {
	paths := newTestPaths(t)
	manager := NewManager(paths)

	at := time.Date(2024, 3, 11, 8, 30, 0, 0, time.UTC)
	body := strings.NewReader("workbook bytes")

	name, size, err := manager.SaveUpload("Weekly WO Export.xlsx", body, 1<<20, at)
	require.NoError(t, err)
	assert.Equal(t, "upload_20240311_083000.xlsx", name)
	assert.Equal(t, int64(len("workbook bytes")), size)

	data, err := os.ReadFile(filepath.Join(paths.UploadsDir, name))
	require.NoError(t, err)
	assert.Equal(t, "workbook bytes", string(data))
}

func TestSaveUploadSameSecondGetsSuffix(t *testing.T) {
	paths := newTestPaths(t)
	manager := NewManager(paths)

	at := time.Date(2024, 3, 11, 8, 30, 0, 0, time.UTC)

	first, _, err := manager.SaveUpload("a.xlsx", strings.NewReader("one"), 1<<20, at)
	require.NoError(t, err)
	second, _, err := manager.SaveUpload("b.xlsx", strings.NewReader("two"), 1<<20, at)
	require.NoError(t, err)

	assert.Equal(t, "upload_20240311_083000.xlsx", first)
	assert.Equal(t, "upload_20240311_083000_2.xlsx", second)

	data, err := os.ReadFile(filepath.Join(paths.UploadsDir, first))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestSaveUploadRejectsOversizedBody(t *testing.T) {
	paths := newTestPaths(t)
	manager := NewManager(paths)

	_, _, err := manager.SaveUpload("big.xlsx", strings.NewReader("0123456789"), 5, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")

	// Partial file must not remain
	entries, err := os.ReadDir(paths.UploadsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveUploadRejectsUnsupportedExtension(t *testing.T) {
	manager := NewManager(newTestPaths(t))

	_, _, err := manager.SaveUpload("report.csv", strings.NewReader("x"), 1<<20, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported upload extension")
}

func TestManagerResolvePath(t *testing.T) {
	paths := newTestPaths(t)
	manager := NewManager(paths)

	assert.Equal(t, filepath.Join(paths.UploadsDir, "a.xlsx"), manager.resolvePath("uploads/a.xlsx"))
	assert.Equal(t, filepath.Join(paths.HistoryDir, "s.csv"), manager.resolvePath("history/s.csv"))
	assert.Equal(t, filepath.Join(paths.ResultsDir, "r.csv"), manager.resolvePath("results/r.csv"))
	assert.Equal(t, filepath.Join(paths.DataDir, "other.txt"), manager.resolvePath("other.txt"))
}

func TestDiscoveryFindUploadsAndSnapshots(t *testing.T) {
	paths := newTestPaths(t)
	require.NoError(t, os.MkdirAll(paths.UploadsDir, 0755))
	require.NoError(t, os.MkdirAll(paths.HistoryDir, 0755))

	for _, name := range []string{
		"upload_20240311_083000.xlsx",
		"upload_20240318_090000.xlsm",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(paths.UploadsDir, name), []byte("x"), 0644))
	}
	for _, name := range []string{
		"master_weeks_20240311_083000.csv",
		"master_weeks_20240318_090000.csv",
		"unrelated.csv",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(paths.HistoryDir, name), []byte("x"), 0644))
	}

	discovery := NewDiscovery(paths.DataDir)

	uploads, err := discovery.FindUploads(paths.UploadsDir)
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Contains(t, uploads, "20240311_083000")
	assert.Contains(t, uploads, "20240318_090000")

	snapshots, err := discovery.FindSnapshots(paths.HistoryDir)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	// Newest first
	assert.Equal(t, "master_weeks_20240318_090000.csv", snapshots[0].Name)
	assert.Equal(t, "master_weeks_20240311_083000.csv", snapshots[1].Name)
}
