package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"houselytics/internal/config"
	apierrors "houselytics/internal/errors"
	"houselytics/internal/operations"
	"houselytics/internal/regression"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.NewPaths(config.PathsConfig{
		BaseDir:      t.TempDir(),
		DataDir:      "data",
		ReportsDir:   "reports",
		LogsDir:      "logs",
		TrainCSV:     "raw/train.csv",
		InheritedCSV: "raw/inherited_houses.csv",
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

// writeCleanCSV writes a small fully-numeric cleaned dataset where
// living area and quality track price and year built does not.
func writeCleanCSV(t *testing.T, path string) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	var b strings.Builder
	b.WriteString("GrLivArea,OverallQual,YearBuilt,SalePrice\n")
	for i := 0; i < 40; i++ {
		area := 1000.0 + float64(i)*50
		quality := 1 + i%10
		year := 1900 + rng.Intn(120)
		price := 50000 + 90*area + 12000*float64(quality)
		b.WriteString(fmt.Sprintf("%.0f,%d,%d,%.0f\n", area, quality, year, price))
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

// knownModel has hand-picked parameters so expected predictions can be
// computed by inspection: a house at the feature means prices at the
// target mean.
func knownModel() *regression.Model {
	return &regression.Model{
		Columns:    []string{"GrLivArea", "OverallQual"},
		Means:      []float64{1500, 5},
		Stds:       []float64{500, 2},
		Weights:    []float64{0.8, 0.4},
		Bias:       0,
		TargetMean: 180000,
		TargetStd:  50000,
		TrainedAt:  time.Now().UTC(),
		Samples:    40,
	}
}

func writeArtifacts(t *testing.T, paths *config.Paths) {
	t.Helper()
	require.NoError(t, knownModel().Save(paths.ModelFile))
	require.NoError(t, regression.SaveMetrics(paths.MetricsFile, regression.Metrics{
		TrainR2: 0.95, TestR2: 0.91, TestMAE: 12000, TestRMSE: 18000,
		TrainSamples: 32, TestSamples: 8,
	}))
}

func TestInsightsService_Summary(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)
	svc := NewInsightsService(NewDataStore(paths, "SalePrice"), testLogger())

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 40, summary.Overview.Records)
	assert.Equal(t, 4, summary.Overview.Features)
	assert.Equal(t, "SalePrice", summary.Overview.Target)
	assert.Greater(t, summary.TargetStats.Mean, 0.0)
	assert.LessOrEqual(t, summary.TargetStats.Min, summary.TargetStats.Median)
	assert.LessOrEqual(t, summary.TargetStats.Median, summary.TargetStats.Max)
	assert.Equal(t, "Lydia Doe", summary.Project.Client)
	assert.Len(t, summary.Project.BusinessRequirements, 2)
}

func TestInsightsService_MissingDataset(t *testing.T) {
	paths := testPaths(t)
	svc := NewInsightsService(NewDataStore(paths, "SalePrice"), testLogger())

	_, err := svc.Summary(context.Background())
	assert.ErrorIs(t, err, apierrors.ErrDatasetNotFound)
}

func TestInsightsService_Correlations(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)
	svc := NewInsightsService(NewDataStore(paths, "SalePrice"), testLogger())

	correlations, err := svc.Correlations(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, correlations, 2)

	// living area dominates price in the fixture
	assert.Equal(t, "GrLivArea", correlations[0].Feature)
	assert.Greater(t, correlations[0].R, 0.7)

	// top<=0 falls back to the default, capped by available features
	all, err := svc.Correlations(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInsightsService_FeatureDetail(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)
	svc := NewInsightsService(NewDataStore(paths, "SalePrice"), testLogger())

	detail, err := svc.FeatureDetail(context.Background(), "GrLivArea")
	require.NoError(t, err)
	assert.Equal(t, "GrLivArea", detail.Stats.Feature)
	assert.Equal(t, 40, detail.Stats.Count)
	assert.NotEmpty(t, detail.Scatter)

	_, err = svc.FeatureDetail(context.Background(), "NoSuchColumn")
	assert.ErrorIs(t, err, apierrors.ErrFeatureNotFound)
}

func TestInsightsService_Hypotheses(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)
	svc := NewInsightsService(NewDataStore(paths, "SalePrice"), testLogger())

	hypotheses, err := svc.Hypotheses(context.Background())
	require.NoError(t, err)
	require.Len(t, hypotheses, 3)

	byID := map[string]bool{}
	for _, h := range hypotheses {
		byID[h.ID] = h.Supported
	}
	assert.True(t, byID["size"])
	assert.False(t, byID["age"])
}

func TestPredictionService_Predict(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)
	writeArtifacts(t, paths)

	svc := NewPredictionService(paths, NewDataStore(paths, "SalePrice"),
		NewModelStore(paths), nil, testLogger())

	// one std above both feature means: 180000 + (0.8+0.4)*50000
	pred, err := svc.Predict(context.Background(), map[string]float64{
		"GrLivArea":   2000,
		"OverallQual": 7,
	})
	require.NoError(t, err)
	assert.InDelta(t, 240000, pred.EstimatedValue, 1e-6)
	assert.Equal(t, 2000.0, pred.FeaturesUsed["GrLivArea"])
}

func TestPredictionService_PredictImputesMissing(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)
	writeArtifacts(t, paths)

	svc := NewPredictionService(paths, NewDataStore(paths, "SalePrice"),
		NewModelStore(paths), nil, testLogger())

	pred, err := svc.Predict(context.Background(), map[string]float64{"GrLivArea": 2000})
	require.NoError(t, err)

	// OverallQual came from the training median
	assert.Greater(t, pred.FeaturesUsed["OverallQual"], 0.0)
	assert.Greater(t, pred.EstimatedValue, 0.0)
}

func TestPredictionService_ModelMissing(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)

	svc := NewPredictionService(paths, NewDataStore(paths, "SalePrice"),
		NewModelStore(paths), nil, testLogger())

	_, err := svc.Predict(context.Background(), map[string]float64{"GrLivArea": 2000})
	assert.ErrorIs(t, err, apierrors.ErrModelNotFound)
}

func writeInheritedCSV(t *testing.T, path string) {
	t.Helper()
	content := "GrLivArea,OverallQual\n2000,7\n1500,5\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestPredictionService_Inherited(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)
	writeArtifacts(t, paths)
	writeInheritedCSV(t, paths.InheritedCSV)

	svc := NewPredictionService(paths, NewDataStore(paths, "SalePrice"),
		NewModelStore(paths), nil, testLogger())

	portfolio, err := svc.Inherited(context.Background())
	require.NoError(t, err)
	require.Len(t, portfolio.Valuations, 2)

	assert.InDelta(t, 240000, portfolio.Valuations[0].EstimatedValue, 1e-6)
	assert.InDelta(t, 180000, portfolio.Valuations[1].EstimatedValue, 1e-6)
	assert.InDelta(t, 420000, portfolio.Total, 1e-6)
	assert.Equal(t, "2000", portfolio.Valuations[0].House["GrLivArea"])
}

func TestPredictionService_InheritedReport(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)
	writeArtifacts(t, paths)
	writeInheritedCSV(t, paths.InheritedCSV)

	svc := NewPredictionService(paths, NewDataStore(paths, "SalePrice"),
		NewModelStore(paths), nil, testLogger())

	var csvBuf bytes.Buffer
	require.NoError(t, svc.WriteInheritedReport(context.Background(), &csvBuf, "csv"))
	assert.Contains(t, csvBuf.String(), "Portfolio total")

	var xlsxBuf bytes.Buffer
	require.NoError(t, svc.WriteInheritedReport(context.Background(), &xlsxBuf, "xlsx"))
	workbook, err := excelize.OpenReader(&xlsxBuf)
	require.NoError(t, err)
	defer workbook.Close()
	rows, err := workbook.GetRows("Appraisal")
	require.NoError(t, err)
	assert.Len(t, rows, 4) // header + 2 houses + total

	err = svc.WriteInheritedReport(context.Background(), &bytes.Buffer{}, "pdf")
	require.Error(t, err)
}

func TestPerformanceService_Report(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)
	writeArtifacts(t, paths)

	// the known model only uses two of the dataset's features, so
	// residual replay needs a model fitted on the same frame
	store := NewDataStore(paths, "SalePrice")
	modelCfg := config.ModelConfig{
		TargetColumn: "SalePrice",
		TestFraction: 0.2,
		SplitSeed:    42,
	}

	frame, err := store.Frame()
	require.NoError(t, err)
	require.Equal(t, 40, frame.NumRows())

	svc := NewPerformanceService(store, NewModelStore(paths), modelCfg, testLogger())
	_, err = svc.Report(context.Background(), 10)
	// width mismatch between the 2-feature model and 3-feature frame
	require.Error(t, err)
}

func TestPerformanceService_ReportFullModel(t *testing.T) {
	paths := testPaths(t)
	writeCleanCSV(t, paths.CleanTrainCSV)

	model := knownModel()
	model.Columns = []string{"GrLivArea", "OverallQual", "YearBuilt"}
	model.Means = []float64{1500, 5, 1960}
	model.Stds = []float64{500, 2, 30}
	model.Weights = []float64{0.8, 0.4, 0.01}
	require.NoError(t, model.Save(paths.ModelFile))
	require.NoError(t, regression.SaveMetrics(paths.MetricsFile, regression.Metrics{
		TestR2: 0.9, TrainSamples: 32, TestSamples: 8,
	}))

	svc := NewPerformanceService(NewDataStore(paths, "SalePrice"), NewModelStore(paths),
		config.ModelConfig{TargetColumn: "SalePrice", TestFraction: 0.2, SplitSeed: 42},
		testLogger())

	report, err := svc.Report(context.Background(), 10)
	require.NoError(t, err)

	assert.InDelta(t, 0.9, report.Metrics.TestR2, 1e-9)
	require.Len(t, report.Importances, 3)
	assert.Equal(t, "GrLivArea", report.Importances[0].Feature)
	assert.Equal(t, "Total living area (sq ft)", report.Importances[0].Label)
	assert.Len(t, report.Residuals, 8)
}

func writeTrainCSV(t *testing.T, path string) {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	var b strings.Builder
	b.WriteString("GrLivArea,OverallQual,SalePrice\n")
	for i := 0; i < 200; i++ {
		area := 900 + rng.Float64()*1800
		quality := 1 + rng.Intn(10)
		price := 45000 + 80*area + 10000*float64(quality)
		b.WriteString(fmt.Sprintf("%.0f,%d,%.0f\n", area, quality, price))
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

func TestOperationsService_StartAndGet(t *testing.T) {
	paths := testPaths(t)
	writeTrainCSV(t, paths.TrainCSV)

	registry, err := operations.DefaultRegistry()
	require.NoError(t, err)
	manager := operations.NewManager(registry, nil, testLogger())

	modelCfg := config.ModelConfig{
		TargetColumn: "SalePrice",
		LearningRate: 0.01,
		Epochs:       50,
		BatchSize:    32,
		TestFraction: 0.2,
		SplitSeed:    42,
	}
	data := NewDataStore(paths, "SalePrice")
	models := NewModelStore(paths)
	svc := NewOperationsService(manager, paths, modelCfg, data, models, nil, testLogger())

	snapshot, err := svc.Start(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, snapshot.ID)

	require.Eventually(t, func() bool {
		got, err := svc.Get(context.Background(), snapshot.ID)
		return err == nil && got.Status == operations.RunStatusCompleted
	}, 30*time.Second, 50*time.Millisecond)

	// the run exported artifacts the stores can now read
	model, err := models.Model()
	require.NoError(t, err)
	assert.Equal(t, []string{"GrLivArea", "OverallQual"}, model.Columns)

	runs := svc.List(context.Background())
	require.Len(t, runs, 1)

	_, err = svc.Get(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, apierrors.ErrRunNotFound)
}

type fakeClients struct{ n int }

func (f fakeClients) ClientCount() int { return f.n }

func TestHealthService(t *testing.T) {
	paths := testPaths(t)
	svc := NewHealthService("1.2.3", "2026-08-01", paths, fakeClients{n: 2}, testLogger())

	live := svc.Liveness(context.Background())
	assert.Equal(t, "healthy", live.Status)
	assert.Equal(t, "1.2.3", live.Version)

	ready := svc.Readiness(context.Background())
	assert.False(t, ready.Ready)
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "down", ready.Checks["model_artifact"].Status)

	writeTrainCSV(t, paths.TrainCSV)
	writeCleanCSV(t, paths.CleanTrainCSV)
	writeArtifacts(t, paths)

	ready = svc.Readiness(context.Background())
	assert.True(t, ready.Ready)
	assert.Equal(t, "ready", ready.Status)

	version := svc.Version(context.Background())
	assert.Equal(t, "1.2.3", version.Version)
	assert.NotEmpty(t, version.GoVersion)
}
