package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeInternal,
				Message: "role store error",
				Err:     errors.New("db error"),
			},
			wantMsg: "internal: role store error (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
	assert.ErrorIs(t, domainErr, baseErr)
}

func TestDomainError_Is(t *testing.T) {
	cause := errors.New("roles: max")
	err := NewValidationError("too many roles", cause)

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidSubject)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInsufficientPermissions)
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewValidationError("too many roles", nil).WithDetail("max", 64)
	assert.Equal(t, 64, err.Details["max"])

	wrapped := fmt.Errorf("set roles: %w", err)
	assert.Equal(t, map[string]interface{}{"max": 64}, GetErrorDetails(wrapped))
}

func TestErrorTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", NewDomainError(ErrorTypeNotFound, "x", nil), IsNotFoundError},
		{"validation", ErrInvalidSubject, IsValidationError},
		{"unauthorized", ErrUnauthorized, IsUnauthorizedError},
		{"forbidden", ErrInsufficientPermissions, IsForbiddenError},
		{"timeout", ErrLookupTimeout, IsTimeoutError},
		{"wrapped timeout", WrapLookupTimeout(context.DeadlineExceeded), IsTimeoutError},
		{"store failure", WrapStoreFailure("load", errors.New("cause")), IsInternalError},
		{"internal", WrapInternal("boom", errors.New("cause")), IsInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}

	plain := errors.New("plain")
	assert.False(t, IsInternalError(plain))
	assert.Equal(t, ErrorType(""), GetErrorType(plain))
	assert.Nil(t, GetErrorDetails(plain))
}

func TestWrapStoreFailure(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := WrapStoreFailure("failed to load roles", cause)

	assert.ErrorIs(t, err, ErrRoleStoreFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load roles: internal: role store error: pq: connection refused", err.Error())
}

func TestWrapLookupTimeout(t *testing.T) {
	err := WrapLookupTimeout(context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrLookupTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "timeout: role lookup timed out: context deadline exceeded", err.Error())
}
