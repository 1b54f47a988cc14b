package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetpulse/internal/config"
	"fleetpulse/pkg/contracts/domain"
)

func newTestPaths(t *testing.T) *config.Paths {
	t.Helper()
	base := t.TempDir()
	return &config.Paths{
		DataDir:    base,
		UploadsDir: filepath.Join(base, "uploads"),
		HistoryDir: filepath.Join(base, "history"),
		ResultsDir: filepath.Join(base, "results"),
		MasterCSV:  filepath.Join(base, "master_weeks.csv"),
	}
}

func sampleTable() domain.WeeklyTable {
	table := domain.NewWeeklyTable()
	table[9] = domain.WeeklySummary{
		Week:      10,
		ReturnPct: 16.67,
		MTTRHours: domain.Float(12.25),
		WOVolume:  4,
		PctLeq24:  domain.Float(75),
		PctLeq48:  domain.Float(100),
	}
	table[22] = domain.WeeklySummary{
		Week:      23,
		ReturnPct: 0,
		WOVolume:  2,
	}
	return table
}

func TestMasterStoreLoadMissingReturnsNil(t *testing.T) {
	store := NewMasterStore(newTestPaths(t))

	table, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, table)
	assert.False(t, store.Exists())
}

func TestMasterStoreSaveLoadRoundtrip(t *testing.T) {
	store := NewMasterStore(newTestPaths(t))
	want := sampleTable()

	require.NoError(t, store.Save(want))
	assert.True(t, store.Exists())

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMasterStoreSaveRejectsInvalidTable(t *testing.T) {
	store := NewMasterStore(newTestPaths(t))

	err := store.Save(domain.NewWeeklyTable()[:7])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid master")
	assert.False(t, store.Exists())
}

func TestMasterStoreLoadRejectsCorruptFile(t *testing.T) {
	paths := newTestPaths(t)
	store := NewMasterStore(paths)

	require.NoError(t, os.WriteFile(paths.MasterCSV, []byte("Week,Bad\n1,x\n"), 0644))

	_, err := store.Load()
	require.Error(t, err)
}

func TestMasterStoreSnapshot(t *testing.T) {
	paths := newTestPaths(t)
	store := NewMasterStore(paths)

	// No master yet: snapshot is a no-op
	path, err := store.Snapshot(time.Now())
	require.NoError(t, err)
	assert.Empty(t, path)

	require.NoError(t, store.Save(sampleTable()))

	at := time.Date(2024, 3, 11, 8, 30, 0, 0, time.UTC)
	path, err = store.Snapshot(at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.HistoryDir, "master_weeks_20240311_083000.csv"), path)

	original, err := os.ReadFile(paths.MasterCSV)
	require.NoError(t, err)
	snapshot, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, snapshot)
}

func TestMasterStoreClear(t *testing.T) {
	store := NewMasterStore(newTestPaths(t))

	// Clearing a missing master is fine
	require.NoError(t, store.Clear())

	require.NoError(t, store.Save(sampleTable()))
	require.NoError(t, store.Clear())
	assert.False(t, store.Exists())
}
