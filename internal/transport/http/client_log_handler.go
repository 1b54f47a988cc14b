package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "fleetpulse/internal/errors"
)

// maxBrowserLogBytes caps a posted log entry; dashboard stack traces
// fit comfortably, anything bigger is garbage.
const maxBrowserLogBytes = 16 * 1024

// BrowserLogHandler ingests log entries posted by the dashboard, so
// script errors in operators' browsers land in the server log next to
// the pipeline events they interrupted.
type BrowserLogHandler struct {
	logger *slog.Logger
}

// NewBrowserLogHandler creates a handler writing to the given logger.
func NewBrowserLogHandler(logger *slog.Logger) *BrowserLogHandler {
	return &BrowserLogHandler{
		logger: logger.With(slog.String("handler", "browser_log")),
	}
}

// BrowserLogEntry is one log line posted by the dashboard.
type BrowserLogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Page    string `json:"page,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Handle accepts a single log entry and relays it at the requested level.
// Unknown levels fall back to info rather than rejecting the entry.
func (h *BrowserLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var entry BrowserLogEntry
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBrowserLogBytes)).Decode(&entry); err != nil {
		apierrors.WriteError(w, apierrors.NewValidationError("invalid log entry"))
		return
	}
	if entry.Message == "" {
		apierrors.WriteError(w, apierrors.NewValidationError("log entry requires a message"))
		return
	}

	level := slog.LevelInfo
	switch entry.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("page", entry.Page),
		slog.String("user_agent", r.UserAgent()),
	}
	if entry.Stack != "" {
		attrs = append(attrs, slog.String("stack", entry.Stack))
	}

	h.logger.LogAttrs(r.Context(), level, entry.Message, attrs...)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "logged"})
}
