package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetpulse/internal/shared/testutil"
)

func postLogEntry(t *testing.T, handler *BrowserLogHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)
	return rec
}

func TestBrowserLogHandlerRelaysEntry(t *testing.T) {
	logger, captured := testutil.NewTestLogger(t)
	handler := NewBrowserLogHandler(logger)

	rec := postLogEntry(t, handler, BrowserLogEntry{
		Level:   "error",
		Message: "upload request failed",
		Page:    "/",
		Stack:   "TypeError: fetch failed",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	testutil.AssertLogContains(t, captured, slog.LevelError, "upload request failed")
	testutil.AssertLogAttr(t, captured, "page", "/")
	testutil.AssertLogAttr(t, captured, "stack", "TypeError: fetch failed")
}

func TestBrowserLogHandlerDefaultsUnknownLevel(t *testing.T) {
	logger, captured := testutil.NewTestLogger(t)
	handler := NewBrowserLogHandler(logger)

	rec := postLogEntry(t, handler, BrowserLogEntry{
		Level:   "critical",
		Message: "odd level",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	testutil.AssertLogContains(t, captured, slog.LevelInfo, "odd level")
}

func TestBrowserLogHandlerRejectsBadEntries(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewBrowserLogHandler(logger)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{not json"},
		{name: "missing message", body: `{"level":"error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.Handle(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
