package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "fleetpulse/internal/errors"
	custommw "fleetpulse/internal/middleware"
	v1 "fleetpulse/pkg/contracts/api/v1"
)

// uploadFormField is the multipart field carrying the workbook.
const uploadFormField = "file"

// maxUploadMemory bounds how much of the multipart body is buffered in
// memory before spilling to disk.
const maxUploadMemory = 4 << 20

// UploadHandler handles workbook uploads and merge commits
type UploadHandler struct {
	service      MetricsServiceInterface
	validation   *validationHelperAdapter
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// ValidationHelper validates request payloads against their struct tags.
type ValidationHelper interface {
	ValidateStruct(v interface{}) error
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(service MetricsServiceInterface, validation ValidationHelper, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *UploadHandler {
	return &UploadHandler{
		service:      service,
		validation:   &validationHelperAdapter{validation},
		logger:       logger.With(slog.String("handler", "upload")),
		errorHandler: errorHandler,
	}
}

// Routes returns the upload routes
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", custommw.OperationTraceHandler("upload", h.Upload))
	r.Get("/", h.ListUploads)
	r.Post("/{id}/merge", custommw.OperationTraceHandler("merge", h.CommitMerge))

	return r
}

// Upload handles POST /api/uploads. It accepts a multipart workbook, runs
// the metrics pipeline and returns the incoming table preview plus the
// weeks overlapping the current master. Nothing is merged yet.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadFormField, "Request must be multipart/form-data with a workbook file"))
		return
	}

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadFormField, "Missing workbook file"))
		return
	}
	defer file.Close()

	h.logger.InfoContext(r.Context(), "processing upload",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size_bytes", header.Size))

	result, err := h.service.ProcessUpload(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "upload processing failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("filename", header.Filename))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// ListUploads handles GET /api/uploads
func (h *UploadHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	uploads, err := h.service.ListUploads(r.Context(), limit)
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

// CommitMerge handles POST /api/uploads/{id}/merge. The body selects which
// overlap weeks take the incoming values; unselected weeks keep the master.
func (h *UploadHandler) CommitMerge(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	uploadID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || uploadID < 1 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Upload id must be a positive integer"))
		return
	}

	var req v1.MergeCommitRequest
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("body", "Invalid request body"))
			return
		}
		if err := h.validation.ValidateStruct(&req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	h.logger.InfoContext(r.Context(), "committing merge",
		slog.String("request_id", reqID),
		slog.Int64("upload_id", uploadID),
		slog.Int("overwrite_weeks", len(req.OverwriteWeeks)))

	outcome, err := h.service.CommitMerge(r.Context(), uploadID, req.OverwriteWeeks)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "merge failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.Int64("upload_id", uploadID))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   outcome,
	})
}

// validationHelperAdapter tolerates a nil helper so handlers stay usable in
// minimal wiring.
type validationHelperAdapter struct {
	inner ValidationHelper
}

func (a *validationHelperAdapter) ValidateStruct(v interface{}) error {
	if a.inner == nil {
		return nil
	}
	return a.inner.ValidateStruct(v)
}

// parseLimit reads an optional positive limit query parameter.
func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 500 {
		return def
	}
	return limit
}
