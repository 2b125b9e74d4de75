// Package session drives a line-oriented, prompt-driven interactive process
// (psql) by submitting one command at a time and classifying each response
// against a small ordered set of literal patterns.
//
// A Session is not safe for concurrent use. Each open session owns a single
// reader goroutine that moves output from the stream into a channel so that
// every wait can be bounded by a timer; the goroutine exits on Close.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/schmitthub/testdb/internal/iostreams"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateUnstarted State = iota
	StateAwaitingReady
	StateReady
	StateSubmitting
	StateAwaitingResponse
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateAwaitingReady:
		return "awaiting-ready"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ResultKind classifies how AwaitResponse finished.
type ResultKind int

const (
	// ResultMatch means one of the requested patterns appeared.
	ResultMatch ResultKind = iota
	// ResultTimeout means nothing matched before the deadline.
	ResultTimeout
	// ResultEOF means the stream ended without a match.
	ResultEOF
)

func (k ResultKind) String() string {
	switch k {
	case ResultMatch:
		return "match"
	case ResultTimeout:
		return "timeout"
	case ResultEOF:
		return "end of stream"
	default:
		return fmt.Sprintf("result(%d)", int(k))
	}
}

// Result is the outcome of one AwaitResponse call.
type Result struct {
	Kind ResultKind
	// Index is the position of the matched pattern in the request, or -1.
	Index int
	// Pattern is the matched pattern, empty unless Kind is ResultMatch.
	Pattern string
	// Detail is the output observed before the match. For timeouts and end
	// of stream it is all unread output.
	Detail string
}

// Matched reports whether pattern index i matched.
func (r Result) Matched(i int) bool {
	return r.Kind == ResultMatch && r.Index == i
}

const (
	defaultLineTerminator = "\n"
	defaultQuitGrace      = time.Second
	pumpExitWait          = 2 * time.Second
)

// Options configures a Session.
type Options struct {
	// ReadyPattern is the prompt that signals the process accepts input.
	ReadyPattern string
	// StartupTimeout bounds the wait for the first ReadyPattern.
	StartupTimeout time.Duration
	// QuitCommand is sent by Close when the session reached the ready state.
	QuitCommand string
	// QuitGrace bounds how long Close waits for the process to exit after
	// QuitCommand. Defaults to one second.
	QuitGrace time.Duration
	// LineTerminator follows every submitted command. Defaults to "\n".
	LineTerminator string
	// Transcript, when set, receives every byte read from the process.
	Transcript io.Writer
	// Logger receives debug events; nil disables logging.
	Logger iostreams.Logger
}

func (o Options) withDefaults() Options {
	if o.LineTerminator == "" {
		o.LineTerminator = defaultLineTerminator
	}
	if o.QuitGrace <= 0 {
		o.QuitGrace = defaultQuitGrace
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

// Session is one interactive process driven command by command.
type Session struct {
	opts   Options
	stream Stream
	state  State

	buf    []byte
	eof    bool
	eofErr error

	chunks     chan chunk
	done       chan struct{}
	pumpExited chan struct{}
}

// Open launches the process and blocks until ReadyPattern appears or
// StartupTimeout elapses. A missing prompt yields a *StartupTimeoutError and
// the launched process is released before returning.
func Open(ctx context.Context, launcher Launcher, opts Options) (*Session, error) {
	if opts.ReadyPattern == "" {
		return nil, errors.New("session: ready pattern is required")
	}
	if opts.StartupTimeout <= 0 {
		return nil, errors.New("session: startup timeout must be positive")
	}

	s := &Session{opts: opts.withDefaults(), state: StateUnstarted}

	stream, err := launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launching session: %w", err)
	}
	s.attach(stream)
	s.state = StateAwaitingReady

	res, err := s.AwaitResponse([]string{s.opts.ReadyPattern}, s.opts.StartupTimeout)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if res.Kind != ResultMatch {
		_ = s.Close()
		return nil, &StartupTimeoutError{
			Pattern: s.opts.ReadyPattern,
			Timeout: s.opts.StartupTimeout,
			Reason:  res.Kind,
			Output:  strings.TrimSpace(res.Detail),
		}
	}

	s.state = StateReady
	s.opts.Logger.Debug().Str("prompt", s.opts.ReadyPattern).Msg("session ready")
	return s, nil
}

func (s *Session) attach(stream Stream) {
	s.stream = stream
	s.chunks = make(chan chunk, chunkBuffer)
	s.done = make(chan struct{})
	s.pumpExited = make(chan struct{})
	go pump(stream, s.chunks, s.done, s.pumpExited)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Submit writes command followed by the line terminator. The session must be
// ready, i.e. the previous command's response has been awaited.
func (s *Session) Submit(command string) error {
	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateReady:
	default:
		return fmt.Errorf("%w (state %s)", ErrNotReady, s.state)
	}

	s.state = StateSubmitting
	s.opts.Logger.Debug().Str("command", command).Msg("submitting command")
	if _, err := io.WriteString(s.stream, command+s.opts.LineTerminator); err != nil {
		s.state = StateReady
		return fmt.Errorf("writing command: %w", err)
	}
	s.state = StateAwaitingResponse
	return nil
}

// AwaitResponse blocks until one of patterns appears in unread output, the
// stream ends, or timeout elapses. It never retries.
//
// Patterns are literal substrings. When several match, the one starting
// earliest in the output wins and ties go to the earlier pattern. Output up
// to the end of the match is consumed; anything after it stays buffered for
// the next call. A timeout leaves the buffer untouched.
func (s *Session) AwaitResponse(patterns []string, timeout time.Duration) (Result, error) {
	switch s.state {
	case StateClosed:
		return Result{Index: -1}, ErrClosed
	case StateUnstarted:
		return Result{Index: -1}, errors.New("session: not started")
	}
	if len(patterns) == 0 {
		return Result{Index: -1}, errors.New("session: at least one pattern is required")
	}
	for _, p := range patterns {
		if p == "" {
			return Result{Index: -1}, errors.New("session: empty pattern")
		}
	}

	if s.state != StateAwaitingReady {
		s.state = StateAwaitingResponse
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if res, ok := s.match(patterns); ok {
			s.settle()
			return res, nil
		}
		if s.eof {
			detail := string(s.buf)
			s.buf = nil
			s.settle()
			s.opts.Logger.Debug().AnErr("cause", s.eofErr).Msg("session stream ended")
			return Result{Kind: ResultEOF, Index: -1, Detail: detail}, nil
		}

		select {
		case c := <-s.chunks:
			s.receive(c)
		case <-timer.C:
			s.settle()
			return Result{Kind: ResultTimeout, Index: -1, Detail: string(s.buf)}, nil
		}
	}
}

// Discard drops output that is already buffered or waiting in the reader
// channel without blocking, and returns it. A response that arrives after its
// command timed out would otherwise satisfy the next command's wait.
func (s *Session) Discard() string {
	if s.state == StateClosed || s.chunks == nil {
		return ""
	}
	for drained := false; !drained; {
		select {
		case c := <-s.chunks:
			s.receive(c)
		default:
			drained = true
		}
	}
	stale := string(s.buf)
	s.buf = nil
	return stale
}

// settle returns an opened session to the ready state after a wait. A
// session still awaiting its first prompt keeps that state until Open decides.
func (s *Session) settle() {
	if s.state == StateAwaitingResponse {
		s.state = StateReady
	}
}

func (s *Session) receive(c chunk) {
	if len(c.data) > 0 {
		s.buf = append(s.buf, c.data...)
		if s.opts.Transcript != nil {
			_, _ = s.opts.Transcript.Write(c.data)
		}
	}
	if c.err != nil {
		s.eof = true
		if !errors.Is(c.err, io.EOF) {
			s.eofErr = c.err
		}
	}
}

func (s *Session) match(patterns []string) (Result, bool) {
	best, bestAt := -1, -1
	for i, p := range patterns {
		at := bytes.Index(s.buf, []byte(p))
		if at < 0 {
			continue
		}
		if bestAt < 0 || at < bestAt {
			best, bestAt = i, at
		}
	}
	if best < 0 {
		return Result{}, false
	}

	end := bestAt + len(patterns[best])
	res := Result{
		Kind:    ResultMatch,
		Index:   best,
		Pattern: patterns[best],
		Detail:  string(s.buf[:bestAt]),
	}
	s.buf = append([]byte(nil), s.buf[end:]...)
	return res, true
}

// Close sends the quit command when the session reached the ready state,
// then releases the stream and the reader goroutine. It runs regardless of
// earlier failures and is safe to call more than once.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	if s.stream == nil {
		s.state = StateClosed
		return nil
	}

	if s.state != StateAwaitingReady && s.opts.QuitCommand != "" && !s.eof {
		if _, err := io.WriteString(s.stream, s.opts.QuitCommand+s.opts.LineTerminator); err != nil {
			s.opts.Logger.Debug().Err(err).Msg("sending quit command")
		} else {
			s.drain(s.opts.QuitGrace)
		}
	}

	close(s.done)
	err := s.stream.Close()

	select {
	case <-s.pumpExited:
	case <-time.After(pumpExitWait):
		s.opts.Logger.Warn().Msg("session reader did not exit after close")
	}

	s.state = StateClosed
	s.buf = nil
	if err != nil {
		return fmt.Errorf("closing session stream: %w", err)
	}
	return nil
}

// drain reads until end of stream or grace elapses.
func (s *Session) drain(grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	for !s.eof {
		select {
		case c := <-s.chunks:
			s.receive(c)
		case <-timer.C:
			return
		}
	}
}
