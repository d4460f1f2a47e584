package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrInternal,
		ErrConflict, ErrServiceUnavail, ErrOutOfStock,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("redis connection lost")
	appErr := &AppError{Code: CodeInternal, Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "redis connection lost")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "slot not found"}
	assert.Equal(t, "NOT_FOUND: slot not found", appErr.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "nope", Err: ErrNotFound}
	assert.True(t, errors.Is(appErr, ErrNotFound))
}

// --- Constructor functions ---

func TestNotFound(t *testing.T) {
	err := NotFound("slot", "wishlist")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, "slot wishlist not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("product id is required")
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestConflict(t *testing.T) {
	err := Conflict("add already in flight")
	assert.Equal(t, "CONFLICT", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestOutOfStock(t *testing.T) {
	err := OutOfStock("Only 2 left in stock")
	assert.Equal(t, CodeOutOfStock, err.Code)
	assert.Equal(t, "Only 2 left in stock", err.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.True(t, errors.Is(err, ErrOutOfStock))
}

func TestUnavailable_DefaultsToSentinel(t *testing.T) {
	err := Unavailable("upstream down", nil)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
}

func TestInternal(t *testing.T) {
	err := Internal(fmt.Errorf("segfault"))
	assert.Equal(t, "INTERNAL_ERROR", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Contains(t, err.Error(), "segfault")
}

func TestWrap(t *testing.T) {
	wrapped := Wrap(ErrNotFound, "load wishlist")
	assert.Contains(t, wrapped.Error(), "load wishlist")
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}

// --- CodeOf ---

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeOutOfStock, CodeOf(fmt.Errorf("add: %w", OutOfStock("no stock"))))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
}

// --- HTTPStatus ---

func TestHTTPStatus_SentinelErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrOutOfStock, http.StatusUnprocessableEntity},
		{ErrServiceUnavail, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestHTTPStatus_AppErrorWithoutStatus(t *testing.T) {
	err := &AppError{Code: "X", Message: "x", Err: ErrConflict}
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestHTTPStatus_UnknownError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("unknown")))
}
