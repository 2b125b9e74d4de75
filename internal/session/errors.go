package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStartupTimeout matches any *StartupTimeoutError via errors.Is.
	ErrStartupTimeout = errors.New("session startup timed out")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrNotReady is returned by Submit while a response is still pending.
	ErrNotReady = errors.New("session not ready for input")
)

// StartupTimeoutError reports that the ready prompt never appeared after
// launch. It is fatal for the session.
type StartupTimeoutError struct {
	Pattern string
	Timeout time.Duration
	// Reason is the result kind that ended the wait (timeout or end of stream).
	Reason ResultKind
	// Output is whatever the process printed before giving up.
	Output string
}

func (e *StartupTimeoutError) Error() string {
	msg := fmt.Sprintf("ready prompt %q not seen within %s (%s)", e.Pattern, e.Timeout, e.Reason)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// Is reports whether target is ErrStartupTimeout.
func (e *StartupTimeoutError) Is(target error) bool {
	return target == ErrStartupTimeout
}

// CommandError reports that the interpreter printed the error marker in
// response to a command. It is recoverable.
type CommandError struct {
	Command string
	Detail  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Detail)
}

// NoResponseError reports that neither the ready prompt nor the error marker
// appeared for a command. It is recoverable.
type NoResponseError struct {
	Command string
	Reason  string
}

func (e *NoResponseError) Error() string {
	return fmt.Sprintf("no response to %q: %s", e.Command, e.Reason)
}
