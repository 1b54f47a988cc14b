package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetpulse/internal/config"
	apierrors "fleetpulse/internal/errors"
	"fleetpulse/pkg/contracts/domain"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	base := t.TempDir()
	return &config.Paths{
		ExecutableDir: base,
		DataDir:       base,
		UploadsDir:    filepath.Join(base, "uploads"),
		HistoryDir:    filepath.Join(base, "history"),
		ResultsDir:    filepath.Join(base, "results"),
		LogsDir:       filepath.Join(base, "logs"),
		MasterCSV:     filepath.Join(base, "master_weeks.csv"),
		DatabaseFile:  filepath.Join(base, "fleetpulse.db"),
	}
}

func TestMasterHandlerGetMaster(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	table := domain.NewWeeklyTable()
	row := table.Row(11)
	row.WOVolume = 3
	row.ReturnPct = 12.5

	handler := NewMasterHandler(&fakeMetricsService{master: table}, testPaths(t), logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			ActiveWeeks []int `json:"active_weeks"`
			TotalVolume int   `json:"total_volume"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int{11}, resp.Data.ActiveWeeks)
	assert.Equal(t, 3, resp.Data.TotalVolume)
}

func TestMasterHandlerGetMasterNotFound(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	handler := NewMasterHandler(&fakeMetricsService{masterErr: apierrors.ErrMasterNotFound}, testPaths(t), logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestMasterHandlerDownloadCSV(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.ResultsDir, 0755))
	require.NoError(t, os.WriteFile(paths.GetResultsPath(ResultCSVName), []byte("Week\n1\n"), 0644))

	handler := NewMasterHandler(&fakeMetricsService{}, paths, logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/export/csv", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ResultCSVName)
	assert.Contains(t, rec.Body.String(), "Week")
}

func TestMasterHandlerDownloadUnknownFormat(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	handler := NewMasterHandler(&fakeMetricsService{}, testPaths(t), logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/export/pdf", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMasterHandlerDownloadMissingExport(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	handler := NewMasterHandler(&fakeMetricsService{}, testPaths(t), logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/export/csv", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
