package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houselytics/internal/analysis"
	apierrors "houselytics/internal/errors"
	"houselytics/internal/operations"
	"houselytics/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testErrorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(testLogger(), false)
}

// mockInsights implements InsightsReader
type mockInsights struct {
	summary      services.Summary
	correlations []analysis.Correlation
	detail       services.FeatureDetail
	hypotheses   []analysis.Hypothesis
	err          error
}

func (m *mockInsights) Summary(ctx context.Context) (services.Summary, error) {
	return m.summary, m.err
}

func (m *mockInsights) Correlations(ctx context.Context, top int) ([]analysis.Correlation, error) {
	if m.err != nil {
		return nil, m.err
	}
	if top > 0 && top < len(m.correlations) {
		return m.correlations[:top], nil
	}
	return m.correlations, nil
}

func (m *mockInsights) FeatureDetail(ctx context.Context, feature string) (services.FeatureDetail, error) {
	return m.detail, m.err
}

func (m *mockInsights) Hypotheses(ctx context.Context) ([]analysis.Hypothesis, error) {
	return m.hypotheses, m.err
}

func TestInsightsHandler_GetCorrelations(t *testing.T) {
	mock := &mockInsights{
		correlations: []analysis.Correlation{
			{Feature: "OverallQual", Label: "Construction quality (1-10)", R: 0.79},
			{Feature: "GrLivArea", Label: "Total living area (sq ft)", R: 0.71},
		},
	}
	handler := NewInsightsHandler(mock, testLogger(), testErrorHandler())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/correlations?top=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Correlations []analysis.Correlation `json:"correlations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Correlations, 1)
	assert.Equal(t, "OverallQual", body.Correlations[0].Feature)
}

func TestInsightsHandler_GetCorrelations_BadTop(t *testing.T) {
	handler := NewInsightsHandler(&mockInsights{}, testLogger(), testErrorHandler())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/correlations?top=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestInsightsHandler_FeatureNotFound(t *testing.T) {
	mock := &mockInsights{err: apierrors.ErrFeatureNotFound}
	handler := NewInsightsHandler(mock, testLogger(), testErrorHandler())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/features/Bogus", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryHandler(t *testing.T) {
	mock := &mockInsights{summary: services.Summary{
		Overview: analysis.Overview{Records: 1460, Features: 20, Target: "SalePrice"},
	}}
	handler := NewSummaryHandler(mock, testErrorHandler())

	rec := httptest.NewRecorder()
	handler.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var summary services.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1460, summary.Overview.Records)
}

// mockPredictor implements Predictor
type mockPredictor struct {
	prediction services.Prediction
	portfolio  services.InheritedPortfolio
	report     string
	err        error

	gotAttributes map[string]float64
}

func (m *mockPredictor) Predict(ctx context.Context, attributes map[string]float64) (services.Prediction, error) {
	m.gotAttributes = attributes
	return m.prediction, m.err
}

func (m *mockPredictor) Inherited(ctx context.Context) (services.InheritedPortfolio, error) {
	return m.portfolio, m.err
}

func (m *mockPredictor) WriteInheritedReport(ctx context.Context, w io.Writer, format string) error {
	if m.err != nil {
		return m.err
	}
	_, err := w.Write([]byte(m.report))
	return err
}

func TestPredictionsHandler_Predict(t *testing.T) {
	mock := &mockPredictor{prediction: services.Prediction{EstimatedValue: 245000}}
	handler := NewPredictionsHandler(mock, testLogger(), testErrorHandler())

	body := `{"GrLivArea": 2000, "OverallQual": 7}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var prediction services.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prediction))
	assert.InDelta(t, 245000, prediction.EstimatedValue, 1e-6)

	assert.Equal(t, 2000.0, mock.gotAttributes["GrLivArea"])
	assert.Equal(t, 7.0, mock.gotAttributes["OverallQual"])
	_, hasYear := mock.gotAttributes["YearBuilt"]
	assert.False(t, hasYear)
}

func TestPredictionsHandler_Predict_OutOfRange(t *testing.T) {
	handler := NewPredictionsHandler(&mockPredictor{}, testLogger(), testErrorHandler())

	body := `{"GrLivArea": 50}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "GrLivArea")
}

func TestPredictionsHandler_Predict_ModelMissing(t *testing.T) {
	mock := &mockPredictor{err: apierrors.ErrModelNotFound}
	handler := NewPredictionsHandler(mock, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredictionsHandler_Inherited(t *testing.T) {
	mock := &mockPredictor{portfolio: services.InheritedPortfolio{
		Valuations: []services.InheritedValuation{
			{EstimatedValue: 180000},
			{EstimatedValue: 220000},
		},
		Total: 400000,
	}}
	handler := NewPredictionsHandler(mock, testLogger(), testErrorHandler())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inherited", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var portfolio services.InheritedPortfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &portfolio))
	assert.InDelta(t, 400000, portfolio.Total, 1e-6)
	assert.Len(t, portfolio.Valuations, 2)
}

func TestPredictionsHandler_Report(t *testing.T) {
	mock := &mockPredictor{report: "Property,Appraised Value ($)\nHouse 1,180000\n"}
	handler := NewPredictionsHandler(mock, testLogger(), testErrorHandler())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inherited/report?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "House 1")

	rec = httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inherited/report?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// mockRuns implements RunController
type mockRuns struct {
	snapshot operations.RunSnapshot
	list     []operations.RunSnapshot
	err      error
}

func (m *mockRuns) Start(ctx context.Context) (operations.RunSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockRuns) Get(ctx context.Context, id string) (operations.RunSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockRuns) List(ctx context.Context) []operations.RunSnapshot {
	return m.list
}

func TestOperationsHandler_StartRun(t *testing.T) {
	mock := &mockRuns{snapshot: operations.RunSnapshot{
		ID:     "run-1",
		Status: operations.RunStatusRunning,
	}}
	handler := NewOperationsHandler(mock, testLogger(), testErrorHandler())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var snapshot operations.RunSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, "run-1", snapshot.ID)
}

func TestOperationsHandler_StartRun_Conflict(t *testing.T) {
	mock := &mockRuns{err: apierrors.ErrTrainingInProgress}
	handler := NewOperationsHandler(mock, testLogger(), testErrorHandler())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOperationsHandler_GetRun_NotFound(t *testing.T) {
	mock := &mockRuns{err: apierrors.ErrRunNotFound}
	handler := NewOperationsHandler(mock, testLogger(), testErrorHandler())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// mockHealth implements HealthReader
type mockHealth struct {
	ready bool
}

func (m *mockHealth) Liveness(ctx context.Context) services.HealthStatus {
	return services.HealthStatus{Status: "healthy", Version: "test", Timestamp: time.Now()}
}

func (m *mockHealth) Readiness(ctx context.Context) services.ReadinessStatus {
	status := "ready"
	if !m.ready {
		status = "not_ready"
	}
	return services.ReadinessStatus{Ready: m.ready, Status: status}
}

func (m *mockHealth) Version(ctx context.Context) services.VersionInfo {
	return services.VersionInfo{Version: "test"}
}

func TestHealthHandler(t *testing.T) {
	handler := NewHealthHandler(&mockHealth{ready: true})
	router := handler.Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_NotReady(t *testing.T) {
	handler := NewHealthHandler(&mockHealth{ready: false})

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

// mockPerformance implements PerformanceReader
type mockPerformance struct {
	report services.PerformanceReport
	err    error

	gotTop int
}

func (m *mockPerformance) Report(ctx context.Context, top int) (services.PerformanceReport, error) {
	m.gotTop = top
	return m.report, m.err
}

func TestPerformanceHandler(t *testing.T) {
	mock := &mockPerformance{report: services.PerformanceReport{
		Importances: []services.RankedImportance{
			{Feature: "GrLivArea", Importance: 0.6},
		},
	}}
	handler := NewPerformanceHandler(mock, testLogger(), testErrorHandler())

	router := chi.NewRouter()
	router.Get("/performance", handler.GetPerformance)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/performance?top=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, mock.gotTop)

	var report services.PerformanceReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Importances, 1)
	assert.Equal(t, "GrLivArea", report.Importances[0].Feature)
}
