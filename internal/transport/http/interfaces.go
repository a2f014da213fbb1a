package http

import (
	"context"
	"io"

	"houselytics/internal/analysis"
	"houselytics/internal/operations"
	"houselytics/internal/services"
)

// InsightsReader answers dataset questions for the insights handler
type InsightsReader interface {
	Summary(ctx context.Context) (services.Summary, error)
	Correlations(ctx context.Context, top int) ([]analysis.Correlation, error)
	FeatureDetail(ctx context.Context, feature string) (services.FeatureDetail, error)
	Hypotheses(ctx context.Context) ([]analysis.Hypothesis, error)
}

// Predictor produces valuations for the predictions handler
type Predictor interface {
	Predict(ctx context.Context, attributes map[string]float64) (services.Prediction, error)
	Inherited(ctx context.Context) (services.InheritedPortfolio, error)
	WriteInheritedReport(ctx context.Context, w io.Writer, format string) error
}

// PerformanceReader reports model quality for the performance handler
type PerformanceReader interface {
	Report(ctx context.Context, top int) (services.PerformanceReport, error)
}

// RunController controls training runs for the operations handler
type RunController interface {
	Start(ctx context.Context) (operations.RunSnapshot, error)
	Get(ctx context.Context, id string) (operations.RunSnapshot, error)
	List(ctx context.Context) []operations.RunSnapshot
}

// HealthReader answers probes for the health handler
type HealthReader interface {
	Liveness(ctx context.Context) services.HealthStatus
	Readiness(ctx context.Context) services.ReadinessStatus
	Version(ctx context.Context) services.VersionInfo
}
