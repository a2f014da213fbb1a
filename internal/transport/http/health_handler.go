package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// HealthHandler serves liveness, readiness, and version endpoints
type HealthHandler struct {
	service HealthReader
}

// NewHealthHandler creates a health handler
func NewHealthHandler(service HealthReader) *HealthHandler {
	return &HealthHandler{service: service}
}

// Routes returns the health routes
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetLiveness)
	r.Get("/ready", h.GetReadiness)
	return r
}

// GetLiveness reports process liveness
func (h *HealthHandler) GetLiveness(w http.ResponseWriter, r *http.Request) {
	render.Respond(w, r, h.service.Liveness(r.Context()))
}

// GetReadiness reports whether serving artifacts are in place.
// Answers 503 when not ready so load balancers hold traffic.
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	status := h.service.Readiness(r.Context())
	if !status.Ready {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}

// GetVersion reports build information
func (h *HealthHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	render.Respond(w, r, h.service.Version(r.Context()))
}
