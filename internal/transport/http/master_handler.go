package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"fleetpulse/internal/config"
	apierrors "fleetpulse/internal/errors"
)

// Exported result filenames under the results directory.
const (
	ResultCSVName      = "weekly_rollup.csv"
	ResultWorkbookName = "weekly_rollup.xlsx"
)

// MasterHandler handles master table HTTP requests
type MasterHandler struct {
	service      MetricsServiceInterface
	paths        *config.Paths
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewMasterHandler creates a new master table handler
func NewMasterHandler(service MetricsServiceInterface, paths *config.Paths, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *MasterHandler {
	return &MasterHandler{
		service:      service,
		paths:        paths,
		logger:       logger.With(slog.String("handler", "master")),
		errorHandler: errorHandler,
	}
}

// Routes returns the master table routes. Destructive routes are expected
// to sit behind the admin gate, wired by the caller.
func (h *MasterHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetMaster)
	r.Get("/summary", h.GetSummary)
	r.Get("/export/{format}", h.Download)

	return r
}

// GetMaster handles GET /api/master
func (h *MasterHandler) GetMaster(w http.ResponseWriter, r *http.Request) {
	master, err := h.service.GetMaster(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"weeks":        master,
			"active_weeks": master.ActiveWeeks(),
			"total_volume": master.TotalVolume(),
		},
	})
}

// GetSummary handles GET /api/master/summary
func (h *MasterHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// Download handles GET /api/master/export/{format}, serving the result
// files written after the last merge.
func (h *MasterHandler) Download(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var filename, contentType string
	switch chi.URLParam(r, "format") {
	case "csv":
		filename = ResultCSVName
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		filename = ResultWorkbookName
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "Format must be csv or xlsx"))
		return
	}

	fullPath := h.paths.GetResultsPath(filename)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		h.errorHandler.HandleError(w, r, apierrors.ErrMasterNotFound)
		return
	}

	h.logger.InfoContext(r.Context(), "serving export",
		slog.String("request_id", reqID),
		slog.String("filename", filename))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(fullPath)))
	http.ServeFile(w, r, fullPath)
}

// Rebuild handles POST /api/master/rebuild. It replays every saved upload
// oldest first into a fresh master table.
func (h *MasterHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "rebuilding master",
		slog.String("request_id", reqID))

	outcome, err := h.service.Rebuild(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "rebuild failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   outcome,
	})
}

// Clear handles DELETE /api/master. A snapshot is taken before the master
// is removed.
func (h *MasterHandler) Clear(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	snapshot, err := h.service.ClearMaster(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "master cleared",
		slog.String("request_id", reqID),
		slog.String("snapshot", snapshot))

	render.JSON(w, r, map[string]interface{}{
		"status":   "success",
		"snapshot": snapshot,
	})
}
