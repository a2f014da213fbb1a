package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "houselytics/internal/errors"
)

// PredictRequest carries the house attributes for a valuation. Every
// attribute is optional; omitted ones are imputed with training
// medians. Field names match the Ames dataset columns the model was
// trained on.
type PredictRequest struct {
	GrLivArea    *float64 `json:"GrLivArea" validate:"omitempty,gte=300,lte=6000"`
	LotArea      *float64 `json:"LotArea" validate:"omitempty,gte=1000,lte=50000"`
	YearBuilt    *float64 `json:"YearBuilt" validate:"omitempty,gte=1800,lte=2026"`
	YearRemodAdd *float64 `json:"YearRemodAdd" validate:"omitempty,gte=1800,lte=2026"`
	OverallQual  *float64 `json:"OverallQual" validate:"omitempty,gte=1,lte=10"`
	OverallCond  *float64 `json:"OverallCond" validate:"omitempty,gte=1,lte=9"`
	BedroomAbvGr *float64 `json:"BedroomAbvGr" validate:"omitempty,gte=0,lte=10"`
	TotalBsmtSF  *float64 `json:"TotalBsmtSF" validate:"omitempty,gte=0,lte=6000"`
	GarageArea   *float64 `json:"GarageArea" validate:"omitempty,gte=0,lte=2000"`
	FirstFlrSF   *float64 `json:"1stFlrSF" validate:"omitempty,gte=300,lte=5000"`
	SecondFlrSF  *float64 `json:"2ndFlrSF" validate:"omitempty,gte=0,lte=3000"`
	KitchenQual  *float64 `json:"KitchenQual" validate:"omitempty,gte=1,lte=5"`
	GarageFinish *float64 `json:"GarageFinish" validate:"omitempty,gte=0,lte=2"`
	BsmtExposure *float64 `json:"BsmtExposure" validate:"omitempty,gte=0,lte=3"`
	BsmtFinType1 *float64 `json:"BsmtFinType1" validate:"omitempty,gte=0,lte=5"`
	BsmtFinSF1   *float64 `json:"BsmtFinSF1" validate:"omitempty,gte=0,lte=5000"`
	BsmtUnfSF    *float64 `json:"BsmtUnfSF" validate:"omitempty,gte=0,lte=3000"`
	MasVnrArea   *float64 `json:"MasVnrArea" validate:"omitempty,gte=0,lte=2000"`
	OpenPorchSF  *float64 `json:"OpenPorchSF" validate:"omitempty,gte=0,lte=1000"`
}

// Bind implements render.Binder
func (p *PredictRequest) Bind(r *http.Request) error {
	return nil
}

// attributes flattens the set fields into the column map the
// prediction service expects.
func (p *PredictRequest) attributes() map[string]float64 {
	out := make(map[string]float64)
	set := func(column string, v *float64) {
		if v != nil {
			out[column] = *v
		}
	}
	set("GrLivArea", p.GrLivArea)
	set("LotArea", p.LotArea)
	set("YearBuilt", p.YearBuilt)
	set("YearRemodAdd", p.YearRemodAdd)
	set("OverallQual", p.OverallQual)
	set("OverallCond", p.OverallCond)
	set("BedroomAbvGr", p.BedroomAbvGr)
	set("TotalBsmtSF", p.TotalBsmtSF)
	set("GarageArea", p.GarageArea)
	set("1stFlrSF", p.FirstFlrSF)
	set("2ndFlrSF", p.SecondFlrSF)
	set("KitchenQual", p.KitchenQual)
	set("GarageFinish", p.GarageFinish)
	set("BsmtExposure", p.BsmtExposure)
	set("BsmtFinType1", p.BsmtFinType1)
	set("BsmtFinSF1", p.BsmtFinSF1)
	set("BsmtUnfSF", p.BsmtUnfSF)
	set("MasVnrArea", p.MasVnrArea)
	set("OpenPorchSF", p.OpenPorchSF)
	return out
}

// PredictionsHandler serves single and portfolio valuations
type PredictionsHandler struct {
	service      Predictor
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
}

// NewPredictionsHandler creates a predictions handler
func NewPredictionsHandler(service Predictor, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PredictionsHandler {
	return &PredictionsHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "predictions_handler")),
		errorHandler: errorHandler,
		validate:     validator.New(),
	}
}

// Routes returns the prediction routes
func (h *PredictionsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Predict)
	r.Get("/inherited", h.GetInherited)
	r.Get("/inherited/report", h.DownloadInheritedReport)
	return r
}

// Predict estimates the sale price for the posted house attributes
func (h *PredictionsHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, validationProblem(err))
		return
	}

	prediction, err := h.service.Predict(r.Context(), req.attributes())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, prediction)
}

// GetInherited appraises the inherited house portfolio
func (h *PredictionsHandler) GetInherited(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.service.Inherited(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, portfolio)
}

// DownloadInheritedReport streams the portfolio appraisal as a file.
// ?format=xlsx|csv, defaulting to xlsx.
func (h *PredictionsHandler) DownloadInheritedReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}

	var contentType string
	switch format {
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "csv":
		contentType = "text/csv"
	default:
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "must be xlsx or csv"))
		return
	}

	// Render fully before touching the response so failures still get
	// a problem body
	var buf bytes.Buffer
	if err := h.service.WriteInheritedReport(r.Context(), &buf, format); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := fmt.Sprintf("inherited_appraisal_%s.%s", time.Now().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.ErrorContext(r.Context(), "report streaming failed",
			slog.String("format", format),
			slog.String("error", err.Error()))
	}
}

// validationProblem converts validator errors into field-level details
func validationProblem(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}
	fields := make([]apierrors.ValidationError, 0, len(verrs))
	for _, ve := range verrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   ve.Field(),
			Message: fmt.Sprintf("failed %s validation (got %v)", ve.Tag(), ve.Value()),
		})
	}
	return apierrors.ErrValidationList(fields)
}
