package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "houselytics/internal/errors"
)

// OperationsHandler controls training runs over HTTP
type OperationsHandler struct {
	service      RunController
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewOperationsHandler creates an operations handler
func NewOperationsHandler(service RunController, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *OperationsHandler {
	return &OperationsHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "operations_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the operations routes
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.StartRun)
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)
	return r
}

// StartRun launches a training run. Answers 202 with the accepted run
// snapshot, or 409 when a run is already active.
func (h *OperationsHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Start(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "training run started",
		slog.String("run_id", snapshot.ID))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, snapshot)
}

// ListRuns returns all known runs, newest first
func (h *OperationsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"runs": h.service.List(r.Context()),
	})
}

// GetRun returns one run's snapshot
func (h *OperationsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "run ID is required"))
		return
	}

	snapshot, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snapshot)
}
