package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "fleetpulse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndGetUpload(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := UploadRecord{
		ReceivedAt:   time.Date(2024, 3, 11, 8, 30, 0, 0, time.UTC),
		OriginalName: "Weekly WO Export.xlsx",
		SavedName:    "upload_20240311_083000.xlsx",
		SizeBytes:    1024,
		RowCount:     350,
		ActiveWeeks:  []int{9, 10, 11},
		Status:       StatusProcessed,
	}

	id, err := store.RecordUpload(ctx, rec)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := store.GetUpload(ctx, id)
	require.NoError(t, err)
	rec.ID = id
	assert.Equal(t, rec, got)
}

func TestGetUploadMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetUpload(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListUploadsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := store.RecordUpload(ctx, UploadRecord{
			ReceivedAt:   base.Add(time.Duration(i) * time.Hour),
			OriginalName: "export.xlsx",
			SavedName:    "upload.xlsx",
			Status:       StatusProcessed,
		})
		require.NoError(t, err)
	}

	records, err := store.ListUploads(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].ReceivedAt.After(records[1].ReceivedAt))
}

func TestFailedUploadKeepsError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.RecordUpload(ctx, UploadRecord{
		ReceivedAt:   time.Now().UTC(),
		OriginalName: "garbage.xlsx",
		SavedName:    "upload_garbage.xlsx",
		Status:       StatusFailed,
		Error:        "no work-order table found in workbook",
	})
	require.NoError(t, err)

	got, err := store.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "no work-order table")
	assert.Empty(t, got.ActiveWeeks)
}

func TestRecordAndListMerges(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	uploadID, err := store.RecordUpload(ctx, UploadRecord{
		ReceivedAt:   time.Now().UTC(),
		OriginalName: "export.xlsx",
		SavedName:    "upload.xlsx",
		Status:       StatusProcessed,
	})
	require.NoError(t, err)

	rec := MergeRecord{
		MergedAt:       time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
		UploadID:       uploadID,
		AdoptedWeeks:   []int{11, 12},
		PreservedWeeks: []int{10},
		SnapshotPath:   "/data/history/master_weeks_20240311_090000.csv",
	}

	id, err := store.RecordMerge(ctx, rec)
	require.NoError(t, err)
	require.NotZero(t, id)

	merges, err := store.ListMerges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, merges, 1)
	rec.ID = id
	assert.Equal(t, rec, merges[0])
}

func TestWeekListRoundtrip(t *testing.T) {
	assert.Equal(t, "", joinWeeks(nil))
	assert.Equal(t, "9,10,52", joinWeeks([]int{9, 10, 52}))

	weeks, err := splitWeeks("9,10,52")
	require.NoError(t, err)
	assert.Equal(t, []int{9, 10, 52}, weeks)

	weeks, err = splitWeeks("")
	require.NoError(t, err)
	assert.Nil(t, weeks)

	_, err = splitWeeks("9,x")
	require.Error(t, err)
}
