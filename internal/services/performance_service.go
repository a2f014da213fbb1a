package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"houselytics/internal/analysis"
	"houselytics/internal/config"
	"houselytics/internal/dataset"
	"houselytics/internal/regression"
)

// Importance bounds for the performance view
const (
	DefaultTopImportances = 10
	MinTopImportances     = 5
	MaxTopImportances     = 20
)

// ResidualPoint pairs an actual test-set price with the model estimate
type ResidualPoint struct {
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

// RankedImportance is one feature's share of the model's weight mass
type RankedImportance struct {
	Feature    string  `json:"feature"`
	Label      string  `json:"label"`
	Importance float64 `json:"importance"`
}

// PerformanceReport is the full model performance view
type PerformanceReport struct {
	Metrics     regression.Metrics `json:"metrics"`
	Importances []RankedImportance `json:"importances"`
	Residuals   []ResidualPoint    `json:"residuals"`
	TrainedAt   time.Time          `json:"trained_at"`
}

// PerformanceService reports how well the trained model fits the data
type PerformanceService struct {
	data   *DataStore
	models *ModelStore
	model  config.ModelConfig
	logger *slog.Logger
}

// NewPerformanceService creates a performance service
func NewPerformanceService(data *DataStore, models *ModelStore, cfg config.ModelConfig, logger *slog.Logger) *PerformanceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PerformanceService{
		data:   data,
		models: models,
		model:  cfg,
		logger: logger.With(slog.String("service", "performance")),
	}
}

// Report returns metrics, the top-K feature importances, and an
// actual-vs-predicted sample over the held-out test split.
func (s *PerformanceService) Report(ctx context.Context, top int) (PerformanceReport, error) {
	if top <= 0 {
		top = DefaultTopImportances
	}
	if top < MinTopImportances {
		top = MinTopImportances
	}
	if top > MaxTopImportances {
		top = MaxTopImportances
	}

	model, err := s.models.Model()
	if err != nil {
		return PerformanceReport{}, err
	}
	metrics, err := s.models.Metrics()
	if err != nil {
		return PerformanceReport{}, err
	}

	importances := model.Importances()
	if len(importances) > top {
		importances = importances[:top]
	}
	ranked := make([]RankedImportance, len(importances))
	for i, imp := range importances {
		ranked[i] = RankedImportance{
			Feature:    imp.Feature,
			Label:      analysis.PrettyLabel(imp.Feature),
			Importance: imp.Importance,
		}
	}

	residuals, err := s.testResiduals(model)
	if err != nil {
		return PerformanceReport{}, err
	}

	return PerformanceReport{
		Metrics:     metrics,
		Importances: ranked,
		Residuals:   residuals,
		TrainedAt:   model.TrainedAt,
	}, nil
}

// testResiduals replays the training split so the scatter shows the
// same held-out houses the saved metrics were computed on.
func (s *PerformanceService) testResiduals(model *regression.Model) ([]ResidualPoint, error) {
	frame, err := s.data.Frame()
	if err != nil {
		return nil, err
	}

	X, y, _, err := dataset.SplitFrame(frame, s.data.Target())
	if err != nil {
		return nil, fmt.Errorf("split for residuals: %w", err)
	}
	_, XTest, _, yTest := dataset.TrainTestSplit(X, y, s.model.TestFraction, s.model.SplitSeed)

	predicted, err := model.Predict(XTest)
	if err != nil {
		return nil, fmt.Errorf("predict residuals: %w", err)
	}

	points := make([]ResidualPoint, len(predicted))
	for i := range predicted {
		points[i] = ResidualPoint{Actual: yTest[i], Predicted: predicted[i]}
	}
	return points, nil
}
