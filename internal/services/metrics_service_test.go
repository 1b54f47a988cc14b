package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fleetpulse/internal/config"
	apierrors "fleetpulse/internal/errors"
	"fleetpulse/internal/history"
)

func newTestService(t *testing.T) (*MetricsService, *config.Paths) {
	t.Helper()

	base := t.TempDir()
	paths := &config.Paths{
		ExecutableDir: base,
		DataDir:       base,
		WebDir:        filepath.Join(base, "web"),
		StaticDir:     filepath.Join(base, "web", "static"),
		UploadsDir:    filepath.Join(base, "uploads"),
		HistoryDir:    filepath.Join(base, "history"),
		ResultsDir:    filepath.Join(base, "results"),
		LogsDir:       filepath.Join(base, "logs"),
		MasterCSV:     filepath.Join(base, "master_weeks.csv"),
		DatabaseFile:  filepath.Join(base, "fleetpulse.db"),
	}
	require.NoError(t, paths.EnsureDirectories())

	log, err := history.Open(paths.DatabaseFile)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	cfg := config.Default()
	return NewMetricsService(cfg, paths, log, nil, nil, nil), paths
}

// buildExport writes a minimal but realistic weekly export workbook.
func buildExport(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Weekly Work Order Export"}))
	header := []interface{}{"Work Order", "Equipment", "Type", "Assigned To", "Date Reported", "Date Completed"}
	require.NoError(t, f.SetSheetRow(sheet, "A3", &header))
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", 4+i), &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestProcessUploadAndCommitMerge(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Week 11 of 2024: Monday 2024-03-11
	rows := [][]interface{}{
		{"WO-1", "iBot 123456", "Breakdown", "alice", "2024-03-11 06:00", "2024-03-11 10:00"},
		{"WO-2", "iBot 123456", "Breakdown", "bob", "2024-03-11 11:00", "2024-03-11 15:00"},
		{"WO-3", "iBot 654321", "Preventive", "alice", "2024-03-12 08:00", "2024-03-12 09:30"},
	}

	result, err := svc.ProcessUpload(ctx, "export.xlsx", buildExport(t, rows))
	require.NoError(t, err)
	require.NotZero(t, result.UploadID)
	assert.Equal(t, 3, result.RowCount)
	assert.Equal(t, 3, result.RecordCount)
	assert.Equal(t, []int{11}, result.ActiveWeeks)
	assert.Empty(t, result.OverlapWeeks)

	week11 := result.Incoming.Row(11)
	require.NotNil(t, week11)
	assert.Equal(t, 3, week11.WOVolume)

	outcome, err := svc.CommitMerge(ctx, result.UploadID, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{11}, outcome.AdoptedWeeks)
	assert.Equal(t, 1, outcome.ActiveWeeks)
	assert.Equal(t, 3, outcome.TotalVolume)
	assert.Empty(t, outcome.SnapshotPath)

	master, err := svc.GetMaster(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, master.Row(11).WOVolume)

	uploads, err := svc.ListUploads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, history.StatusProcessed, uploads[0].Status)

	merges, err := svc.ListMerges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, merges, 1)
	assert.Equal(t, []int{11}, merges[0].AdoptedWeeks)
}

func TestCommitMergePreservesUnselectedOverlap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.ProcessUpload(ctx, "first.xlsx", buildExport(t, [][]interface{}{
		{"WO-1", "iBot 123456", "Breakdown", "alice", "2024-03-11 06:00", "2024-03-11 10:00"},
	}))
	require.NoError(t, err)
	_, err = svc.CommitMerge(ctx, first.UploadID, nil)
	require.NoError(t, err)

	// Second export also covers week 11 with different volume
	second, err := svc.ProcessUpload(ctx, "second.xlsx", buildExport(t, [][]interface{}{
		{"WO-9", "iBot 777777", "Breakdown", "carol", "2024-03-12 06:00", "2024-03-12 08:00"},
		{"WO-8", "iBot 888888", "Breakdown", "dave", "2024-03-13 06:00", "2024-03-13 08:00"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []int{11}, second.OverlapWeeks)

	// Keep history: overlap not selected for overwrite
	outcome, err := svc.CommitMerge(ctx, second.UploadID, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{11}, outcome.PreservedWeeks)
	assert.Empty(t, outcome.AdoptedWeeks)
	assert.Equal(t, 1, outcome.Master.Row(11).WOVolume)
	assert.NotEmpty(t, outcome.SnapshotPath)
}

func TestCommitMergeOverwriteAdoptsIncoming(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.ProcessUpload(ctx, "first.xlsx", buildExport(t, [][]interface{}{
		{"WO-1", "iBot 123456", "Breakdown", "alice", "2024-03-11 06:00", "2024-03-11 10:00"},
	}))
	require.NoError(t, err)
	_, err = svc.CommitMerge(ctx, first.UploadID, nil)
	require.NoError(t, err)

	second, err := svc.ProcessUpload(ctx, "second.xlsx", buildExport(t, [][]interface{}{
		{"WO-9", "iBot 777777", "Breakdown", "carol", "2024-03-12 06:00", "2024-03-12 08:00"},
		{"WO-8", "iBot 888888", "Breakdown", "dave", "2024-03-13 06:00", "2024-03-13 08:00"},
	}))
	require.NoError(t, err)

	outcome, err := svc.CommitMerge(ctx, second.UploadID, []int{11})
	require.NoError(t, err)
	assert.Equal(t, []int{11}, outcome.AdoptedWeeks)
	assert.Equal(t, 2, outcome.Master.Row(11).WOVolume)
}

func TestCommitMergeUnknownUpload(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CommitMerge(context.Background(), 404, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrUploadNotFound)
}

func TestCommitMergeRecomputesAfterRestart(t *testing.T) {
	svc, paths := newTestService(t)
	ctx := context.Background()

	result, err := svc.ProcessUpload(ctx, "export.xlsx", buildExport(t, [][]interface{}{
		{"WO-1", "iBot 123456", "Breakdown", "alice", "2024-03-11 06:00", "2024-03-11 10:00"},
	}))
	require.NoError(t, err)

	// Simulate a restart: new service instance with the same stores
	log, err := history.Open(paths.DatabaseFile)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	restarted := NewMetricsService(config.Default(), paths, log, nil, nil, nil)

	outcome, err := restarted.CommitMerge(ctx, result.UploadID, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{11}, outcome.AdoptedWeeks)
}

func TestGetMasterWithoutMerge(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetMaster(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrMasterNotFound)
}

func TestProcessUploadRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ProcessUpload(ctx, "bogus.xlsx", bytes.NewReader([]byte("not a workbook")))
	require.Error(t, err)

	// Rejection is logged with the failure reason
	uploads, err := svc.ListUploads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, history.StatusFailed, uploads[0].Status)
	assert.NotEmpty(t, uploads[0].Error)
}

func TestRebuildReplaysUploadsInOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.ProcessUpload(ctx, "first.xlsx", buildExport(t, [][]interface{}{
		{"WO-1", "iBot 123456", "Breakdown", "alice", "2024-03-11 06:00", "2024-03-11 10:00"},
	}))
	require.NoError(t, err)
	_, err = svc.CommitMerge(ctx, first.UploadID, nil)
	require.NoError(t, err)

	second, err := svc.ProcessUpload(ctx, "second.xlsx", buildExport(t, [][]interface{}{
		{"WO-5", "iBot 555555", "Breakdown", "erin", "2024-03-18 06:00", "2024-03-18 09:00"},
	}))
	require.NoError(t, err)
	_, err = svc.CommitMerge(ctx, second.UploadID, nil)
	require.NoError(t, err)

	outcome, err := svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.ActiveWeeks)
	assert.Equal(t, 1, outcome.Master.Row(11).WOVolume)
	assert.Equal(t, 1, outcome.Master.Row(12).WOVolume)
}

func TestRebuildNewestUploadWinsOverlap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.ProcessUpload(ctx, "first.xlsx", buildExport(t, [][]interface{}{
		{"WO-1", "iBot 123456", "Breakdown", "alice", "2024-03-11 06:00", "2024-03-11 10:00"},
	}))
	require.NoError(t, err)
	_, err = svc.CommitMerge(ctx, first.UploadID, nil)
	require.NoError(t, err)

	second, err := svc.ProcessUpload(ctx, "second.xlsx", buildExport(t, [][]interface{}{
		{"WO-2", "iBot 222222", "Breakdown", "bob", "2024-03-11 07:00", "2024-03-11 10:00"},
		{"WO-3", "iBot 333333", "Breakdown", "carol", "2024-03-12 07:00", "2024-03-12 10:00"},
	}))
	require.NoError(t, err)
	_, err = svc.CommitMerge(ctx, second.UploadID, []int{11})
	require.NoError(t, err)

	outcome, err := svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.ActiveWeeks)
	assert.Equal(t, 2, outcome.Master.Row(11).WOVolume)
	require.NotNil(t, outcome.Master.Row(11).MTTRHours)
	assert.InDelta(t, 3.0, *outcome.Master.Row(11).MTTRHours, 0.001)
}

func TestClearMasterSnapshotsFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.ProcessUpload(ctx, "export.xlsx", buildExport(t, [][]interface{}{
		{"WO-1", "iBot 123456", "Breakdown", "alice", "2024-03-11 06:00", "2024-03-11 10:00"},
	}))
	require.NoError(t, err)
	_, err = svc.CommitMerge(ctx, result.UploadID, nil)
	require.NoError(t, err)

	snapshot, err := svc.ClearMaster(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot)

	_, err = svc.GetMaster(ctx)
	assert.ErrorIs(t, err, apierrors.ErrMasterNotFound)
}

func TestSummaryReflectsMaster(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.ProcessUpload(ctx, "export.xlsx", buildExport(t, [][]interface{}{
		{"WO-1", "iBot 123456", "Breakdown", "alice", "2024-03-11 06:00", "2024-03-11 10:00"},
	}))
	require.NoError(t, err)
	_, err = svc.CommitMerge(ctx, result.UploadID, nil)
	require.NoError(t, err)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalVolume)
	assert.Contains(t, summary.Weeks, 11)
}
