package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrInvalidInput, ErrConflict, ErrInternal, ErrServiceUnavail}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	withInner := &AppError{Code: "INTERNAL_ERROR", Message: "boom", Err: fmt.Errorf("db down")}
	assert.Equal(t, "INTERNAL_ERROR: boom: db down", withInner.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "item X not found"}
	assert.Equal(t, "NOT_FOUND: item X not found", bare.Error())
}

func TestNotFound(t *testing.T) {
	err := NotFound("item", "A-001")

	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, "item A-001 not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUnavailable_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Unavailable("elasticsearch", cause)

	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
	assert.True(t, errors.Is(err, cause))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", InvalidInput("bad"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"conflict", Conflict("busy"), http.StatusConflict},
		{"unavailable sentinel", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("whatever"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
