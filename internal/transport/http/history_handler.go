package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fleetpulse/internal/config"
	apierrors "fleetpulse/internal/errors"
	"fleetpulse/internal/files"
)

// HistoryHandler serves the upload and merge audit trail plus the master
// snapshots taken before each merge.
type HistoryHandler struct {
	service      MetricsServiceInterface
	discovery    *files.Discovery
	paths        *config.Paths
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(service MetricsServiceInterface, discovery *files.Discovery, paths *config.Paths, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *HistoryHandler {
	return &HistoryHandler{
		service:      service,
		discovery:    discovery,
		paths:        paths,
		logger:       logger.With(slog.String("handler", "history")),
		errorHandler: errorHandler,
	}
}

// Routes returns the history routes
func (h *HistoryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/uploads", h.ListUploads)
	r.Get("/merges", h.ListMerges)
	r.Get("/snapshots", h.ListSnapshots)
	r.Get("/snapshots/{filename}", h.DownloadSnapshot)

	return r
}

// ListUploads handles GET /api/history/uploads
func (h *HistoryHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.service.ListUploads(r.Context(), parseLimit(r, 50))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   uploads,
		"count":  len(uploads),
	})
}

// ListMerges handles GET /api/history/merges
func (h *HistoryHandler) ListMerges(w http.ResponseWriter, r *http.Request) {
	merges, err := h.service.ListMerges(r.Context(), parseLimit(r, 50))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   merges,
		"count":  len(merges),
	})
}

// ListSnapshots handles GET /api/history/snapshots with optional from/to
// date filters.
func (h *HistoryHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.discovery.FindSnapshots(h.paths.HistoryDir)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("could not list snapshots", err))
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("from", "Dates must use the 2006-01-02 format"))
		return
	}
	if !from.IsZero() || !to.IsZero() {
		snapshots = files.FilterFilesByDateRange(snapshots, from, to)
	}

	type snapshotEntry struct {
		Name    string    `json:"name"`
		Size    int64     `json:"size_bytes"`
		ModTime time.Time `json:"modified_at"`
	}

	entries := make([]snapshotEntry, 0, len(snapshots))
	for _, s := range snapshots {
		entries = append(entries, snapshotEntry{Name: s.Name, Size: s.Size, ModTime: s.ModTime})
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   entries,
		"count":  len(entries),
	})
}

// DownloadSnapshot handles GET /api/history/snapshots/{filename}
func (h *HistoryHandler) DownloadSnapshot(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	// Snapshot names are generated; anything else is a traversal attempt.
	if !strings.HasPrefix(filename, "master_weeks_") || !strings.HasSuffix(filename, ".csv") || strings.ContainsAny(filename, "/\\") {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filename", "Invalid snapshot name"))
		return
	}

	fullPath := h.paths.GetSnapshotFilePath(filename)

	h.logger.InfoContext(r.Context(), "serving snapshot",
		slog.String("filename", filename))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, fullPath)
}

// DeleteSnapshot handles DELETE /api/history/snapshots/{filename}. Not part
// of Routes(); the application mounts it behind the admin gate.
func (h *HistoryHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if !strings.HasPrefix(filename, "master_weeks_") || !strings.HasSuffix(filename, ".csv") || strings.ContainsAny(filename, "/\\") {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filename", "Invalid snapshot name"))
		return
	}

	fullPath := h.paths.GetSnapshotFilePath(filename)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("snapshot "+filename))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("could not delete snapshot", err))
		return
	}

	h.logger.InfoContext(r.Context(), "snapshot deleted",
		slog.String("filename", filename))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
	})
}

// parseDateRange reads optional from/to query parameters.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error

	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			return from, to, err
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			return from, to, err
		}
		// Make the upper bound inclusive of the whole day
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}
