package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad input")
	assert.Equal(t, "bad input", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("GrLivArea", "must be between 300 and 6000")

	require.NotNil(t, err.Details)
	detail, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "GrLivArea", detail.Field)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "model missing", "/api/performance").
		WithExtension("error_code", "MODEL_NOT_FOUND")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, TypeNotFound, decoded["type"])
	assert.Equal(t, "Not Found", decoded["title"])
	assert.Equal(t, float64(http.StatusNotFound), decoded["status"])
	assert.Equal(t, "model missing", decoded["detail"])
	assert.Equal(t, "MODEL_NOT_FOUND", decoded["error_code"])
}

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorHandler_HandleError_APIError(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/performance", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, ErrModelNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, TypeModelNotFound, problem["type"])
	assert.Equal(t, "MODEL_NOT_FOUND", problem["error_code"])
	assert.Equal(t, "/api/performance", problem["instance"])
}

func TestErrorHandler_HandleError_ContextCancelled(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/insights", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, fmt.Errorf("loading: %w", context.DeadlineExceeded))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestErrorHandler_HandleError_GenericError(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/insights", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, fmt.Errorf("disk exploded"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, TypeInternal, problem["type"])
	// Internal detail is not leaked to the client
	assert.NotContains(t, rec.Body.String(), "disk exploded")
}

func TestErrorHandler_ErrorToProblem_ConflictByMessage(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/operations", nil)
	problem := h.ErrorToProblem(fmt.Errorf("a training run is already in progress"), req)

	assert.Equal(t, http.StatusConflict, problem.Status)
	assert.Equal(t, TypeTrainingRunning, problem.Type)
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rec := httptest.NewRecorder()

	h.HandlePanic(rec, req, "boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, TypeInternal, problem["type"])
}
