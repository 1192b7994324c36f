package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limited(rps float64, burst int) http.Handler {
	return RateLimit(rps, burst, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/items?q=x", nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit_WithinBurst(t *testing.T) {
	h := limited(10, 10)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1:12345").Code, "request %d", i+1)
	}
}

func TestRateLimit_ExceedingBurst_Returns429(t *testing.T) {
	h := limited(0.001, 3)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
	}

	rr := hit(h, "10.0.0.1:1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
}

func TestRateLimit_BucketsArePerIP(t *testing.T) {
	h := limited(0.001, 1)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:2").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1").Code)
}

func TestRateLimit_DisabledWhenRateNotPositive(t *testing.T) {
	h := limited(0, 1)
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
	}
}

func TestVisitorStore_EvictsStaleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newVisitorStore(1, 1, time.Minute)
	s.now = func() time.Time { return now }

	s.allow("a")
	now = now.Add(30 * time.Second)
	s.allow("b")
	assert.Equal(t, 2, s.len())

	now = now.Add(45 * time.Second)
	s.allow("b")
	assert.Equal(t, 1, s.len(), "a was idle longer than the TTL")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "10.1.1.1:5000", "10.1.1.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.1.1.1:5000", "203.0.113.7"},
		{"bad forwarded falls through", map[string]string{"X-Forwarded-For": "garbage", "X-Real-IP": "198.51.100.2"}, "10.1.1.1:5000", "198.51.100.2"},
		{"no port", nil, "10.1.1.1", "10.1.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
