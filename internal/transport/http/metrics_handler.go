package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fleetpulse/internal/services"
)

// StatsHandler exposes runtime statistics for the dashboard
type StatsHandler struct {
	health *services.HealthService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(health *services.HealthService) *StatsHandler {
	return &StatsHandler{health: health}
}

// Routes sets up the stats routes
func (h *StatsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetStats)
	return r
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.health.SystemStats(r.Context())
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
	})
}
