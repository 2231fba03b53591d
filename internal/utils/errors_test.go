package contextutils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name: "with details",
			err: &AppError{
				Code:    ErrorCodeInvalidInput,
				Message: "Invalid input",
				Details: "item_id is empty",
			},
			expected: "INVALID_INPUT: Invalid input - item_id is empty",
		},
		{
			name: "without details",
			err: &AppError{
				Code:    ErrorCodeRecordNotFound,
				Message: "Record not found",
			},
			expected: "RECORD_NOT_FOUND: Record not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Is(t *testing.T) {
	err := WrapError(ErrNoValidEvents, "batch rejected")
	assert.True(t, errors.Is(err, ErrNoValidEvents))
	assert.False(t, errors.Is(err, ErrRecordNotFound))
}

func TestWrapError(t *testing.T) {
	t.Run("wraps plain error as internal", func(t *testing.T) {
		cause := errors.New("pq: connection refused")
		err := WrapError(cause, "failed to apply observation")

		var appErr *AppError
		require.True(t, AsError(err, &appErr))
		assert.Equal(t, ErrorCodeInternalError, appErr.Code)
		assert.Equal(t, "failed to apply observation", appErr.Message)
		assert.Equal(t, cause, appErr.Cause)
	})

	t.Run("preserves AppError code", func(t *testing.T) {
		err := WrapError(ErrUnauthorized, "session missing")

		var appErr *AppError
		require.True(t, AsError(err, &appErr))
		assert.Equal(t, ErrorCodeUnauthorized, appErr.Code)
		assert.Equal(t, SeverityWarn, appErr.Severity)
	})

	t.Run("nil passthrough", func(t *testing.T) {
		assert.NoError(t, WrapError(nil, "ignored"))
	})
}

func TestWrapErrorf_WithWrapVerb(t *testing.T) {
	cause := errors.New("boom")
	err := WrapErrorf(cause, "applying batch: %w", cause)

	var appErr *AppError
	require.True(t, AsError(err, &appErr))
	assert.Contains(t, appErr.Message, "applying batch")
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCodeNoValidEvents, GetErrorCode(ErrNoValidEvents))
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrDatabaseConnection))
	assert.False(t, IsRetryable(ErrInvalidInput))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestToJSON(t *testing.T) {
	appErr := NewAppError(ErrorCodeNoValidEvents, SeverityWarn, "No valid events provided", "all 3 events malformed")
	out := appErr.ToJSON()

	assert.Equal(t, "NO_VALID_EVENTS", out["code"])
	assert.Equal(t, "No valid events provided", out["message"])
	assert.Equal(t, "all 3 events malformed", out["details"])
	assert.Equal(t, false, out["retryable"])
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetUserIDFromContext(ctx))

	ctx = WithUserID(ctx, "user-123")
	assert.Equal(t, "user-123", GetUserIDFromContext(ctx))
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		ItemID string `validate:"required"`
	}

	assert.NoError(t, ValidateStruct(payload{ItemID: "q1"}))

	err := ValidateStruct(payload{})
	var appErr *AppError
	require.True(t, AsError(err, &appErr))
	assert.Equal(t, ErrorCodeInvalidInput, appErr.Code)
}

func TestIsNonEmptyID(t *testing.T) {
	assert.True(t, IsNonEmptyID("w-42"))
	assert.False(t, IsNonEmptyID(""))
}
