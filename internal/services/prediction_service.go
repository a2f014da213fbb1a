package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"houselytics/internal/config"
	"houselytics/internal/dataset"
	apierrors "houselytics/internal/errors"
	"houselytics/internal/exporter"
	"houselytics/internal/infrastructure"
	"houselytics/internal/preprocess"
)

// Prediction is a single house valuation
type Prediction struct {
	EstimatedValue float64            `json:"estimated_value"`
	FeaturesUsed   map[string]float64 `json:"features_used"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// InheritedValuation is the appraisal of one inherited house
type InheritedValuation struct {
	House          map[string]string `json:"house"`
	EstimatedValue float64           `json:"estimated_value"`
}

// InheritedPortfolio is the appraisal of all inherited houses
type InheritedPortfolio struct {
	Valuations  []InheritedValuation `json:"valuations"`
	Total       float64              `json:"total"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// PredictionService produces sale price estimates from the trained model
type PredictionService struct {
	paths   *config.Paths
	data    *DataStore
	models  *ModelStore
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewPredictionService creates a prediction service
func NewPredictionService(paths *config.Paths, data *DataStore, models *ModelStore,
	metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *PredictionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionService{
		paths:   paths,
		data:    data,
		models:  models,
		metrics: metrics,
		logger:  logger.With(slog.String("service", "prediction")),
	}
}

// Predict estimates the sale price for one house. Attributes the
// caller omits are imputed with training medians.
func (s *PredictionService) Predict(ctx context.Context, attributes map[string]float64) (Prediction, error) {
	model, err := s.models.Model()
	if err != nil {
		return Prediction{}, err
	}
	medians, err := s.data.Medians()
	if err != nil {
		return Prediction{}, err
	}

	row := preprocess.BuildFeatureRow(attributes, model.Columns, medians)
	value, err := model.PredictOne(row)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}

	used := make(map[string]float64, len(model.Columns))
	for i, col := range model.Columns {
		used[col] = row[i]
	}

	s.recordPrediction(ctx, value)
	s.logger.InfoContext(ctx, "valuation produced",
		slog.Float64("estimated_value", value),
		slog.Int("attributes_given", len(attributes)))

	return Prediction{
		EstimatedValue: value,
		FeaturesUsed:   used,
		GeneratedAt:    time.Now(),
	}, nil
}

// Inherited appraises every house in the inherited portfolio
func (s *PredictionService) Inherited(ctx context.Context) (InheritedPortfolio, error) {
	table, values, err := s.appraise(ctx)
	if err != nil {
		return InheritedPortfolio{}, err
	}

	portfolio := InheritedPortfolio{
		Valuations:  make([]InheritedValuation, 0, len(values)),
		GeneratedAt: time.Now(),
	}
	for i, value := range values {
		house := make(map[string]string, len(table.Columns))
		for j, col := range table.Columns {
			house[col] = table.Records[i][j]
		}
		portfolio.Valuations = append(portfolio.Valuations, InheritedValuation{
			House:          house,
			EstimatedValue: value,
		})
		portfolio.Total += value
	}

	s.logger.InfoContext(ctx, "inherited portfolio appraised",
		slog.Int("houses", len(values)),
		slog.Float64("total", portfolio.Total))
	return portfolio, nil
}

// WriteInheritedReport streams the portfolio appraisal as a download.
// Supported formats are "xlsx" and "csv".
func (s *PredictionService) WriteInheritedReport(ctx context.Context, w io.Writer, format string) error {
	table, values, err := s.appraise(ctx)
	if err != nil {
		return err
	}

	var total float64
	for _, v := range values {
		total += v
	}
	report := &exporter.AppraisalReport{
		Columns:     table.Columns,
		Houses:      table.Records,
		Values:      values,
		Total:       total,
		GeneratedAt: time.Now(),
	}

	switch format {
	case "xlsx":
		return report.WriteExcel(w)
	case "csv":
		return report.WriteCSV(w)
	default:
		return apierrors.ErrValidation("format", "must be xlsx or csv")
	}
}

// appraise runs the model over the inherited houses file
func (s *PredictionService) appraise(ctx context.Context) (*dataset.Table, []float64, error) {
	model, err := s.models.Model()
	if err != nil {
		return nil, nil, err
	}
	medians, err := s.data.Medians()
	if err != nil {
		return nil, nil, err
	}

	if !config.FileExists(s.paths.InheritedCSV) {
		return nil, nil, apierrors.ErrDatasetNotFound
	}
	table, err := dataset.ReadCSVTable(s.paths.InheritedCSV)
	if err != nil {
		return nil, nil, fmt.Errorf("load inherited houses: %w", err)
	}
	if table.NumRows() == 0 {
		return nil, nil, apierrors.ErrDatasetNotFound
	}

	frame := preprocess.PrepareBatch(table, model.Columns, medians)
	values, err := model.Predict(frame.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("appraise inherited houses: %w", err)
	}
	for _, value := range values {
		s.recordPrediction(ctx, value)
	}
	return table, values, nil
}

func (s *PredictionService) recordPrediction(ctx context.Context, value float64) {
	if s.metrics == nil {
		return
	}
	s.metrics.PredictionsTotal.Add(ctx, 1)
	s.metrics.PredictedValue.Record(ctx, value)
}
