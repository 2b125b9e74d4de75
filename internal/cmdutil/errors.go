package cmdutil

import (
	"errors"
	"fmt"
)

// Process exit statuses of the testdb binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitCode maps a command error to the status testdb exits with: nil is
// ExitOK, a FlagError is ExitUsage, an ExitError carries its own Code and
// anything else, SilentError included, is ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var flagErr *FlagError
	if errors.As(err, &flagErr) {
		return ExitUsage
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ExitError makes testdb exit with Code without printing anything more.
// Commands return it instead of calling os.Exit so deferred session and
// runtime cleanup still runs; testdb.Main turns it into the process status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// FlagError marks a usage mistake: a bad flag value, a missing statement, an
// unreadable --file. testdb.Main prints it with the command's usage and exits 2.
type FlagError struct {
	err error
}

func (e *FlagError) Error() string { return e.err.Error() }
func (e *FlagError) Unwrap() error { return e.err }

// FlagErrorf creates a FlagError with a formatted message.
func FlagErrorf(format string, args ...any) error {
	return &FlagError{err: fmt.Errorf(format, args...)}
}

// FlagErrorWrap wraps err, typically from pflag parsing, as a FlagError.
func FlagErrorWrap(err error) error {
	return &FlagError{err: err}
}

// SilentError is returned once a command already reported its failure, e.g.
// config check listing every validation error. testdb.Main exits 1 quietly.
var SilentError = errors.New("SilentError")
