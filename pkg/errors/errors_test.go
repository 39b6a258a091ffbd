package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrUnauthorized,
		ErrConflict, ErrInternal, ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	inner := fmt.Errorf("redis connection lost")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Equal(t, "INTERNAL_ERROR: something broke: redis connection lost", appErr.Error())

	bare := &AppError{Code: "CONFLICT", Message: "busy"}
	assert.Equal(t, "CONFLICT: busy", bare.Error())
}

func TestConstructors_WrapSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
		status   int
	}{
		{"not found", NotFound("cart snapshot", "cart:guest"), ErrNotFound, http.StatusNotFound},
		{"invalid input", InvalidInput("qty must be positive"), ErrInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("session required"), ErrUnauthorized, http.StatusUnauthorized},
		{"conflict", Conflict("try again"), ErrConflict, http.StatusConflict},
		{"unavailable", Unavailable("catalog down", errors.New("dial tcp")), ErrServiceUnavail, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	err := NotFound("cart snapshot", "cart:42")
	assert.Equal(t, "cart snapshot with id cart:42 not found", err.Message)
}

func TestHTTPStatus_WrappedSentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("load: %w", ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(fmt.Errorf("add: %w", ErrInvalidInput)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestInternal_Unwraps(t *testing.T) {
	inner := errors.New("disk full")
	err := Internal(inner)
	require.ErrorIs(t, err, inner)
	assert.Equal(t, "an internal error occurred", err.Message)
}

func TestAsAppError(t *testing.T) {
	nf := NotFound("cart snapshot", "cart:1")
	assert.Same(t, nf, AsAppError(fmt.Errorf("load: %w", nf)))

	got := AsAppError(fmt.Errorf("qty: %w", ErrInvalidInput))
	assert.Equal(t, "INVALID_INPUT", got.Code)
	assert.Equal(t, "qty: invalid input", got.Message)

	got = AsAppError(ErrConflict)
	assert.Equal(t, http.StatusConflict, got.Status)
	assert.Equal(t, "resource conflict", got.Message)

	got = AsAppError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, "an internal error occurred", got.Message)
}
