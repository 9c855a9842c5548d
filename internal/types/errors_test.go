package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "simple error without cause",
			err:      NewError(CONFIG_LOAD_FAILED, "failed to load configuration"),
			contains: []string{"[CONFIG_LOAD_FAILED]", "failed to load configuration"},
		},
		{
			name:     "error with cause",
			err:      WrapError(SEED_APPLY_FAILED, "merge failed", errors.New("connection reset")),
			contains: []string{"[SEED_APPLY_FAILED]", "merge failed", "connection reset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", WrapError(CONFIG_NOT_FOUND, "missing", errors.New("stat")))

	assert.True(t, errors.Is(err, NewError(CONFIG_NOT_FOUND, "")))
	assert.False(t, errors.Is(err, NewError(CONFIG_PARSE_FAILED, "")))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapError(SEED_READ_FAILED, "read", cause)

	require.ErrorIs(t, err, cause)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("x: %w", WrapRetryableError(SEED_APPLY_FAILED, "busy", errors.New("deadlock")))))
	assert.False(t, IsRetryable(NewError(SEED_APPLY_FAILED, "bad")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, SEED_INVALID, CodeOf(fmt.Errorf("wrap: %w", NewError(SEED_INVALID, "x"))))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}
