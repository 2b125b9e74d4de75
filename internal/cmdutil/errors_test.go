package cmdutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagErrorf(t *testing.T) {
	err := FlagErrorf("invalid runtime: %s", "podman")
	assert.Equal(t, "invalid runtime: podman", err.Error())

	var flagErr *FlagError
	require.True(t, errors.As(err, &flagErr))
}

func TestFlagErrorWrap(t *testing.T) {
	inner := fmt.Errorf("bad value")
	err := FlagErrorWrap(inner)
	assert.Equal(t, "bad value", err.Error())

	var flagErr *FlagError
	require.True(t, errors.As(err, &flagErr))
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, inner, flagErr.Unwrap())
}

func TestSilentError(t *testing.T) {
	err := fmt.Errorf("something failed: %w", SilentError)
	assert.True(t, errors.Is(err, SilentError))
	assert.Equal(t, "SilentError", SilentError.Error())
}

func TestExitError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &ExitError{Code: 3})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "exit status 3", exitErr.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "silent", err: SilentError, want: ExitFailure},
		{name: "wrapped silent", err: fmt.Errorf("check: %w", SilentError), want: ExitFailure},
		{name: "flag error", err: FlagErrorf("--runtime must be one of sdk, cli"), want: ExitUsage},
		{name: "wrapped flag error", err: fmt.Errorf("sql: %w", FlagErrorWrap(errors.New("no statements"))), want: ExitUsage},
		{name: "exit error", err: &ExitError{Code: 3}, want: 3},
		{name: "generic", err: errors.New("container muproc is not running"), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
