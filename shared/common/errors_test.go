package common

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:            http.StatusNotFound,
		ErrCodeInvalidInput:        http.StatusBadRequest,
		ErrCodeMalformedData:       http.StatusUnprocessableEntity,
		ErrCodeExternalService:     http.StatusServiceUnavailable,
		ErrCodeOperationInProgress: http.StatusConflict,
		ErrCodeInvalidState:        http.StatusUnprocessableEntity,
		ErrCodeRateLimited:         http.StatusTooManyRequests,
		ErrCodeInternal:            http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, NewAppError(code, "x").StatusCode, code)
	}
}

func TestWrapErrorPreservesAppError(t *testing.T) {
	original := ErrNotFound("daily snapshot")
	wrapped := fmt.Errorf("loading: %w", original)

	got := WrapError(wrapped, ErrCodeInternal, "ignored")
	require.NotNil(t, got)
	assert.Same(t, original, got)
	assert.Nil(t, WrapError(nil, ErrCodeInternal, "nil"))

	plain := WrapError(io.EOF, ErrCodeStorage, "read failed")
	assert.ErrorIs(t, plain, io.EOF)
	assert.True(t, HasErrorCode(plain, ErrCodeStorage))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(plain))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(io.EOF))
}

func TestValidationErrors(t *testing.T) {
	var ve ValidationErrors
	assert.False(t, ve.HasErrors())
	assert.Nil(t, ve.ToAppError())

	ve.Add("server.port", "must be between 1 and 65535", 0)
	require.True(t, ve.HasErrors())
	assert.Equal(t, "validation failed: server.port must be between 1 and 65535 (got 0)", ve.Error())

	ve.Add("service.name", "is required", nil)
	assert.Equal(t, "validation failed with 2 errors: server.port must be between 1 and 65535 (got 0); service.name is required", ve.Error())

	appErr := ve.ToAppError()
	assert.Equal(t, ErrCodeValidationFailed, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Contains(t, appErr.Details, "service.name is required")
}
