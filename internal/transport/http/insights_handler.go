package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "houselytics/internal/errors"
)

// InsightsHandler serves dataset summary and correlation views
type InsightsHandler struct {
	service      InsightsReader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewInsightsHandler creates an insights handler
func NewInsightsHandler(service InsightsReader, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *InsightsHandler {
	return &InsightsHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "insights_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the insights routes
func (h *InsightsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetInsights)
	r.Get("/correlations", h.GetCorrelations)
	r.Get("/features/{feature}", h.GetFeature)
	r.Get("/hypotheses", h.GetHypotheses)
	return r
}

// GetInsights returns the correlation and hypothesis landing payload
func (h *InsightsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	correlations, err := h.service.Correlations(ctx, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	hypotheses, err := h.service.Hypotheses(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Respond(w, r, map[string]interface{}{
		"correlations": correlations,
		"hypotheses":   hypotheses,
	})
}

// GetCorrelations returns the features most correlated with price.
// ?top=N bounds the list size.
func (h *InsightsHandler) GetCorrelations(w http.ResponseWriter, r *http.Request) {
	top, err := queryInt(r, "top", 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("top", "must be an integer"))
		return
	}

	correlations, err := h.service.Correlations(r.Context(), top)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Respond(w, r, map[string]interface{}{"correlations": correlations})
}

// GetFeature returns descriptive stats and a scatter sample
func (h *InsightsHandler) GetFeature(w http.ResponseWriter, r *http.Request) {
	feature := chi.URLParam(r, "feature")
	if feature == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("feature", "feature name is required"))
		return
	}

	detail, err := h.service.FeatureDetail(r.Context(), feature)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Respond(w, r, detail)
}

// GetHypotheses returns the project hypothesis validation results
func (h *InsightsHandler) GetHypotheses(w http.ResponseWriter, r *http.Request) {
	hypotheses, err := h.service.Hypotheses(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Respond(w, r, map[string]interface{}{"hypotheses": hypotheses})
}

// SummaryHandler serves the dataset overview
type SummaryHandler struct {
	service      InsightsReader
	errorHandler *apierrors.ErrorHandler
}

// NewSummaryHandler creates a summary handler
func NewSummaryHandler(service InsightsReader, errorHandler *apierrors.ErrorHandler) *SummaryHandler {
	return &SummaryHandler{service: service, errorHandler: errorHandler}
}

// GetSummary returns dataset shape and sale price distribution
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Respond(w, r, summary)
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
