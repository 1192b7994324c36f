package httputil

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

	apperrors "github.com/francpeal/buscador/pkg/errors"
	"github.com/francpeal/buscador/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusTeapot, map[string]int{"page": 1})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"page":1}`, rec.Body.String())
}

func TestWriteNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNotFound(rec)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items/X", nil)

	WriteError(rec, req, apperrors.Conflict("rebuild running"), testLogger())

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
	assert.Equal(t, "rebuild running", resp.Error.Message)
}

func TestWriteError_UnknownErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items", nil)

	WriteError(rec, req, fmt.Errorf("elasticsearch search: boom"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "boom")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	req := httptest.NewRequest(http.MethodGet, "/clients", nil).WithContext(ctx)

	WriteError(rec, req, fmt.Errorf("wrapped: %w", apperrors.ErrServiceUnavail), testLogger())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "corr-1", resp.Error.RequestID)
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
}
