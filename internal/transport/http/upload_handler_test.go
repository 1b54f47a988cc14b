package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetpulse/internal/dataprocessing"
	apierrors "fleetpulse/internal/errors"
	"fleetpulse/internal/history"
	"fleetpulse/internal/services"
	"fleetpulse/pkg/contracts/domain"
)

// fakeMetricsService records calls and returns canned results.
type fakeMetricsService struct {
	uploadResult *services.UploadResult
	uploadErr    error

	mergeOutcome  *services.MergeOutcome
	mergeErr      error
	mergeUploadID int64
	mergeWeeks    []int

	master    domain.WeeklyTable
	masterErr error

	uploads []history.UploadRecord
	merges  []history.MergeRecord
}

func (f *fakeMetricsService) ProcessUpload(ctx context.Context, originalName string, body io.Reader) (*services.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.uploadResult, nil
}

func (f *fakeMetricsService) CommitMerge(ctx context.Context, uploadID int64, overwriteWeeks []int) (*services.MergeOutcome, error) {
	f.mergeUploadID = uploadID
	f.mergeWeeks = overwriteWeeks
	if f.mergeErr != nil {
		return nil, f.mergeErr
	}
	return f.mergeOutcome, nil
}

func (f *fakeMetricsService) GetMaster(ctx context.Context) (domain.WeeklyTable, error) {
	if f.masterErr != nil {
		return nil, f.masterErr
	}
	return f.master, nil
}

func (f *fakeMetricsService) Summary(ctx context.Context) (*dataprocessing.RecentSummary, error) {
	return dataprocessing.SummarizeRecent(f.master), nil
}

func (f *fakeMetricsService) ListUploads(ctx context.Context, limit int) ([]history.UploadRecord, error) {
	return f.uploads, nil
}

func (f *fakeMetricsService) ListMerges(ctx context.Context, limit int) ([]history.MergeRecord, error) {
	return f.merges, nil
}

func (f *fakeMetricsService) Rebuild(ctx context.Context) (*services.MergeOutcome, error) {
	return f.mergeOutcome, f.mergeErr
}

func (f *fakeMetricsService) ClearMaster(ctx context.Context) (string, error) {
	return "master_weeks_20240311_083000.csv", nil
}

func testHandlerDeps(t *testing.T) (*slog.Logger, *apierrors.ErrorHandler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logger, apierrors.NewErrorHandler(logger, false)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadHandlerUpload(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	svc := &fakeMetricsService{
		uploadResult: &services.UploadResult{
			UploadID:    7,
			SavedName:   "upload_20240311_083000.xlsx",
			RowCount:    12,
			RecordCount: 10,
			Incoming:    domain.NewWeeklyTable(),
			ActiveWeeks: []int{11},
		},
	}
	handler := NewUploadHandler(svc, nil, logger, eh)

	body, contentType := multipartBody(t, "file", "export.xlsx", []byte("workbook"))
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Status string                 `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, float64(7), resp.Data["upload_id"])
}

func TestUploadHandlerMissingFile(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	handler := NewUploadHandler(&fakeMetricsService{}, nil, logger, eh)

	body, contentType := multipartBody(t, "wrong_field", "export.xlsx", []byte("workbook"))
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestUploadHandlerCommitMerge(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	svc := &fakeMetricsService{
		mergeOutcome: &services.MergeOutcome{
			Master:       domain.NewWeeklyTable(),
			AdoptedWeeks: []int{11},
			ActiveWeeks:  1,
			TotalVolume:  3,
		},
	}
	handler := NewUploadHandler(svc, nil, logger, eh)

	req := httptest.NewRequest(http.MethodPost, "/7/merge", bytes.NewReader([]byte(`{"overwrite_weeks":[11]}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), svc.mergeUploadID)
	assert.Equal(t, []int{11}, svc.mergeWeeks)
}

func TestUploadHandlerCommitMergeBadID(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	handler := NewUploadHandler(&fakeMetricsService{}, nil, logger, eh)

	req := httptest.NewRequest(http.MethodPost, "/abc/merge", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandlerCommitMergeUnknownUpload(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	handler := NewUploadHandler(&fakeMetricsService{mergeErr: apierrors.ErrUploadNotFound}, nil, logger, eh)

	req := httptest.NewRequest(http.MethodPost, "/404/merge", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadHandlerListUploads(t *testing.T) {
	logger, eh := testHandlerDeps(t)
	svc := &fakeMetricsService{
		uploads: []history.UploadRecord{{ID: 1, OriginalName: "export.xlsx", Status: history.StatusProcessed}},
	}
	handler := NewUploadHandler(svc, nil, logger, eh)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}
