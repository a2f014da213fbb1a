package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "houselytics/internal/errors"
)

// PerformanceHandler serves the model performance view
type PerformanceHandler struct {
	service      PerformanceReader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPerformanceHandler creates a performance handler
func NewPerformanceHandler(service PerformanceReader, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PerformanceHandler {
	return &PerformanceHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "performance_handler")),
		errorHandler: errorHandler,
	}
}

// GetPerformance returns metrics, importances, and residuals.
// ?top=K bounds the importance list.
func (h *PerformanceHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	top, err := queryInt(r, "top", 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("top", "must be an integer"))
		return
	}

	report, err := h.service.Report(r.Context(), top)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Respond(w, r, report)
}
