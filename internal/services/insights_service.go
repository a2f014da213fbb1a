package services

import (
	"context"
	"log/slog"
	"time"

	"houselytics/internal/analysis"
	"houselytics/internal/dataset"
	apierrors "houselytics/internal/errors"
)

// Default and maximum chart sizes exposed by the insights endpoints
const (
	DefaultTopCorrelations = 12
	MaxTopCorrelations     = 50
	ScatterSampleLimit     = 500
)

// Summary is the project landing view: client context plus the
// current state of the training dataset.
type Summary struct {
	Project     ProjectInfo       `json:"project"`
	Overview    analysis.Overview `json:"overview"`
	TargetStats TargetStats       `json:"target_stats"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// ProjectInfo carries the static project brief shown on the summary
type ProjectInfo struct {
	Client               string   `json:"client"`
	Location             string   `json:"location"`
	Scenario             string   `json:"scenario"`
	Dataset              string   `json:"dataset"`
	Objectives           []string `json:"objectives"`
	BusinessRequirements []string `json:"business_requirements"`
	Limitations          string   `json:"limitations"`
}

// projectBrief is fixed for the engagement; the data-derived parts of
// the summary are computed per request.
var projectBrief = ProjectInfo{
	Client:   "Lydia Doe",
	Location: "Ames, Iowa (USA)",
	Scenario: "The client inherited four houses and needs support understanding " +
		"value drivers and estimating market value.",
	Dataset: "Ames, Iowa housing dataset (historical sale records with " +
		"property attributes).",
	Objectives: []string{
		"Identify key drivers of sale price.",
		"Estimate sale price for the inherited houses.",
		"Predict sale price for new user inputs.",
	},
	BusinessRequirements: []string{
		"Data insights: surface relationships between property attributes " +
			"and SalePrice to highlight key drivers such as size, quality and condition.",
		"Predictive system: generate sale price predictions for the inherited " +
			"houses and for user-defined property inputs.",
	},
	Limitations: "Predictions are statistical estimates based on historical " +
		"Ames data, not guaranteed sale prices. Local demand, renovations and " +
		"interest rates can affect real-world value.",
}

// TargetStats describes the sale price distribution
type TargetStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// FeatureDetail bundles descriptive stats with a scatter sample
type FeatureDetail struct {
	Stats   analysis.FeatureStats   `json:"stats"`
	Scatter []analysis.ScatterPoint `json:"scatter"`
}

// InsightsService answers questions about the cleaned training data
type InsightsService struct {
	store  *DataStore
	logger *slog.Logger
}

// NewInsightsService creates an insights service over the data store
func NewInsightsService(store *DataStore, logger *slog.Logger) *InsightsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightsService{
		store:  store,
		logger: logger.With(slog.String("service", "insights")),
	}
}

// Summary returns the project brief together with the dataset
// overview and sale price distribution
func (s *InsightsService) Summary(ctx context.Context) (Summary, error) {
	frame, err := s.store.Frame()
	if err != nil {
		return Summary{}, err
	}

	target := s.store.Target()
	prices, err := frame.Column(target)
	if err != nil {
		return Summary{}, err
	}
	min, max := dataset.MinMax(prices)

	return Summary{
		Project:  projectBrief,
		Overview: analysis.DescribeFrame(frame, target),
		TargetStats: TargetStats{
			Mean:   dataset.Mean(prices),
			Median: dataset.Median(prices),
			Std:    dataset.Std(prices),
			Min:    min,
			Max:    max,
		},
		GeneratedAt: time.Now(),
	}, nil
}

// Correlations returns the features most correlated with sale price,
// strongest first. top<=0 falls back to the default chart size.
func (s *InsightsService) Correlations(ctx context.Context, top int) ([]analysis.Correlation, error) {
	if top <= 0 {
		top = DefaultTopCorrelations
	}
	if top > MaxTopCorrelations {
		top = MaxTopCorrelations
	}

	frame, err := s.store.Frame()
	if err != nil {
		return nil, err
	}
	return analysis.TopCorrelations(frame, s.store.Target(), top)
}

// FeatureDetail returns stats and a scatter sample for one feature
func (s *InsightsService) FeatureDetail(ctx context.Context, feature string) (FeatureDetail, error) {
	frame, err := s.store.Frame()
	if err != nil {
		return FeatureDetail{}, err
	}

	if frame.ColumnIndex(feature) < 0 {
		s.logger.WarnContext(ctx, "unknown feature requested",
			slog.String("feature", feature))
		return FeatureDetail{}, apierrors.ErrFeatureNotFound
	}

	stats, scatter, err := analysis.DescribeFeature(frame, feature, s.store.Target(), ScatterSampleLimit)
	if err != nil {
		return FeatureDetail{}, err
	}
	return FeatureDetail{Stats: stats, Scatter: scatter}, nil
}

// Hypotheses evaluates the three project hypotheses against the data
func (s *InsightsService) Hypotheses(ctx context.Context) ([]analysis.Hypothesis, error) {
	frame, err := s.store.Frame()
	if err != nil {
		return nil, err
	}
	return analysis.ValidateHypotheses(frame, s.store.Target())
}
