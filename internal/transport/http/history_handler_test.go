package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetpulse/internal/files"
	"fleetpulse/internal/history"
)

func TestHistoryHandlerListMerges(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	paths := testPaths(t)
	svc := &fakeMetricsService{
		merges: []history.MergeRecord{{ID: 1, UploadID: 7, AdoptedWeeks: []int{11}}},
	}
	handler := NewHistoryHandler(svc, files.NewDiscovery(paths.DataDir), paths, logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/merges", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestHistoryHandlerListSnapshots(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.HistoryDir, 0755))
	require.NoError(t, os.WriteFile(paths.GetSnapshotFilePath("master_weeks_20240311_083000.csv"), []byte("Week\n"), 0644))

	handler := NewHistoryHandler(&fakeMetricsService{}, files.NewDiscovery(paths.DataDir), paths, logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/snapshots", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
		Data  []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "master_weeks_20240311_083000.csv", resp.Data[0].Name)
}

func TestHistoryHandlerListSnapshotsBadDate(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.HistoryDir, 0755))

	handler := NewHistoryHandler(&fakeMetricsService{}, files.NewDiscovery(paths.DataDir), paths, logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/snapshots?from=yesterday", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryHandlerDownloadSnapshot(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.HistoryDir, 0755))
	require.NoError(t, os.WriteFile(paths.GetSnapshotFilePath("master_weeks_20240311_083000.csv"), []byte("Week\n1\n"), 0644))

	handler := NewHistoryHandler(&fakeMetricsService{}, files.NewDiscovery(paths.DataDir), paths, logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/snapshots/master_weeks_20240311_083000.csv", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Week")
}

func TestHistoryHandlerDownloadSnapshotRejectsTraversal(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	paths := testPaths(t)

	handler := NewHistoryHandler(&fakeMetricsService{}, files.NewDiscovery(paths.DataDir), paths, logger, eh)

	for _, name := range []string{"secrets.txt", "master_weeks_x.txt", "..%2fmaster_weeks_20240311_083000.csv"} {
		req := httptest.NewRequest(http.MethodGet, "/snapshots/"+name, nil)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestHistoryHandlerDeleteSnapshot(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.HistoryDir, 0755))
	name := "master_weeks_20240311_083000.csv"
	require.NoError(t, os.WriteFile(paths.GetSnapshotFilePath(name), []byte("Week\n"), 0644))

	handler := NewHistoryHandler(&fakeMetricsService{}, files.NewDiscovery(paths.DataDir), paths, logger, eh)
	router := chi.NewRouter()
	router.Delete("/snapshots/{filename}", handler.DeleteSnapshot)

	req := httptest.NewRequest(http.MethodDelete, "/snapshots/"+name, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, err := os.Stat(paths.GetSnapshotFilePath(name))
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryHandlerDeleteSnapshotMissing(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.HistoryDir, 0755))

	handler := NewHistoryHandler(&fakeMetricsService{}, files.NewDiscovery(paths.DataDir), paths, logger, eh)
	router := chi.NewRouter()
	router.Delete("/snapshots/{filename}", handler.DeleteSnapshot)

	req := httptest.NewRequest(http.MethodDelete, "/snapshots/master_weeks_20990101_000000.csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
