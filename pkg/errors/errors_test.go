package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeInvalidInterval, "start 10 after end 5"),
			expected: "[INVALID_INTERVAL] start 10 after end 5",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeStoreUnavailable, "query failed", errors.New("disposed")),
			expected: "[STORE_UNAVAILABLE] query failed: disposed",
		},
		{
			name:     "formatted",
			err:      Newf(CodeParentMismatch, "child %d has parent %d", 3, 1),
			expected: "[PARENT_MISMATCH] child 3 has parent 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeStoreUnavailable, "query failed", underlying)

	assert.Equal(t, underlying, err.Unwrap())
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodeCancelled, "error 1")
	err2 := New(CodeCancelled, "error 2")
	err3 := New(CodeInvalidInterval, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"invalid interval", ErrInvalidInterval, IsInvalidInterval, true},
		{"wrapped invalid interval", fmt.Errorf("thread 3: %w", Newf(CodeInvalidInterval, "bad")), IsInvalidInterval, true},
		{"parent mismatch", ErrParentMismatch, IsParentMismatch, true},
		{"store unavailable", Wrap(CodeStoreUnavailable, "gone", errors.New("io")), IsStoreUnavailable, true},
		{"cancelled", ErrCancelled, IsCancelled, true},
		{"incomplete", ErrIncompleteCoverage, IsIncompleteCoverage, true},
		{"not found", ErrNotFound, IsNotFound, true},
		{"other error", ErrInvalidInput, IsCancelled, false},
		{"nil error", nil, IsStoreUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, CodeCancelled, GetErrorCode(ErrCancelled))
	assert.Equal(t, CodeStoreUnavailable, GetErrorCode(fmt.Errorf("ctx: %w", ErrStoreUnavailable)))
	assert.Equal(t, CodeUnknown, GetErrorCode(errors.New("plain")))
}

func TestGetErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid interval", GetErrorMessage(ErrInvalidInterval))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
	assert.Equal(t, "", GetErrorMessage(nil))
}
