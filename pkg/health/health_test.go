package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveReady(t *testing.T, h *Handler) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestLivenessHandler_AlwaysReturns200(t *testing.T) {
	h := NewHandler()
	h.Register("elasticsearch", func(ctx context.Context) error { return fmt.Errorf("down") })

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReadinessHandler_AllHealthy(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("elasticsearch", func(ctx context.Context) error { return nil })
	h.RegisterNonCritical("postgres", func(ctx context.Context) error { return nil })

	rec, resp := serveReady(t, h)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.True(t, resp.Checks["elasticsearch"].Critical)
	assert.False(t, resp.Checks["postgres"].Critical)
}

func TestReadinessHandler_NonCriticalDown_ReturnsDegraded200(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("elasticsearch", func(ctx context.Context) error { return nil })
	h.RegisterNonCritical("postgres", func(ctx context.Context) error { return fmt.Errorf("connection refused") })

	rec, resp := serveReady(t, h)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusDown, resp.Checks["postgres"].Status)
	assert.Equal(t, "connection refused", resp.Checks["postgres"].Error)
}

func TestReadinessHandler_CriticalDown_Returns503(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("elasticsearch", func(ctx context.Context) error { return fmt.Errorf("no route") })
	h.RegisterNonCritical("postgres", func(ctx context.Context) error { return fmt.Errorf("refused") })

	rec, resp := serveReady(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StatusDown, resp.Status)
}

func TestReadinessHandler_NoCheckers(t *testing.T) {
	rec, resp := serveReady(t, NewHandler())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusUp, resp.Status)
}

func TestRegister_Overwrite(t *testing.T) {
	h := NewHandler()
	h.Register("elasticsearch", func(ctx context.Context) error { return fmt.Errorf("fail") })
	h.Register("elasticsearch", func(ctx context.Context) error { return nil })

	rec, resp := serveReady(t, h)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusUp, resp.Checks["elasticsearch"].Status)
}
