package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &DomainError{
				Code:    "recovery_failed",
				Message: "event recovery failed",
				Err:     errors.New("connection refused"),
			},
			expected: "event recovery failed: connection refused",
		},
		{
			name: "without wrapped error",
			err: &DomainError{
				Code:    "invalid_filter",
				Message: "search filter is invalid",
				Err:     nil,
			},
			expected: "search filter is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	domainErr := &DomainError{
		Code:    "test",
		Message: "test message",
		Err:     originalErr,
	}

	unwrapped := domainErr.Unwrap()
	assert.Equal(t, originalErr, unwrapped)
}

func TestNewDomainError(t *testing.T) {
	originalErr := errors.New("underlying error")
	err := NewDomainError("test_code", "test message", originalErr)

	assert.NotNil(t, err)
	assert.Equal(t, "test_code", err.Code)
	assert.Equal(t, "test message", err.Message)
	assert.Equal(t, originalErr, err.Err)
}

func TestNewDomainError_NilWrappedError(t *testing.T) {
	err := NewDomainError("test_code", "test message", nil)

	assert.NotNil(t, err)
	assert.Equal(t, "test_code", err.Code)
	assert.Equal(t, "test message", err.Message)
	assert.Nil(t, err.Err)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Field:   "limit",
		Message: "must be between 1 and 1000",
	}

	expected := "validation failed for field limit: must be between 1 and 1000"
	assert.Equal(t, expected, err.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("event_type", "cannot be empty")

	assert.NotNil(t, err)
	assert.Equal(t, "event_type", err.Field)
	assert.Equal(t, "cannot be empty", err.Message)
}

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := NewValidationError("limit", "must be between 1 and 1000")

	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.NotErrorIs(t, err, ErrEventNotFound)
}

func TestErrorConstants(t *testing.T) {
	// Event errors
	assert.NotNil(t, ErrEventNotFound)
	assert.NotNil(t, ErrInvalidEventType)
	assert.NotNil(t, ErrInvalidTimeWindow)

	// Delivery errors
	assert.NotNil(t, ErrChannelUnavailable)

	// Lock errors
	assert.NotNil(t, ErrLockAcquisitionFailed)
	assert.NotNil(t, ErrLockNotHeld)

	// Auth errors
	assert.NotNil(t, ErrUnauthorized)
	assert.NotNil(t, ErrForbidden)

	// Validation errors
	assert.NotNil(t, ErrValidationFailed)
}

func TestErrorUnwrapping(t *testing.T) {
	baseErr := ErrChannelUnavailable
	wrappedErr := NewDomainError("delivery_error", "delivery attempt failed", baseErr)

	assert.True(t, errors.Is(wrappedErr, baseErr))
	assert.ErrorIs(t, wrappedErr, ErrChannelUnavailable)
}
