// Package sessiontest provides a scripted in-memory interpreter that stands
// in for psql behind a session.Launcher.
package sessiontest

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/schmitthub/testdb/internal/session"
)

// Reply is the interpreter's answer to one input line.
type Reply struct {
	// Output is printed before the prompt.
	Output string
	// Hang suppresses both output and prompt.
	Hang bool
	// Close ends the stream after Output.
	Close bool
	// Delay postpones Output and the prompt.
	Delay time.Duration
}

// Interpreter serves one scripted session per Launch over net.Pipe.
// Zero-value fields mean: no banner, never ready, no quit handling and an
// empty reply (prompt only) to every line.
type Interpreter struct {
	// Banner is printed on connect, before the first prompt.
	Banner string
	// Prompt is printed after the banner and after every reply. Empty means
	// the interpreter never becomes ready.
	Prompt string
	// Quit closes the connection when received.
	Quit string
	// Echo repeats each input line back, as a terminal does.
	Echo bool
	// Respond computes the reply to a line.
	Respond func(line string) Reply
	// LaunchErr makes Launch fail.
	LaunchErr error

	mu       sync.Mutex
	lines    []string
	launches int
	closes   int
	wg       sync.WaitGroup
}

// Launch implements session.Launcher.
func (in *Interpreter) Launch(ctx context.Context) (session.Stream, error) {
	if in.LaunchErr != nil {
		return nil, in.LaunchErr
	}
	return &stream{Conn: in.Pipe(), in: in}, nil
}

// Pipe starts serving a new session and returns the client end of the
// connection, for transports that wrap a raw net.Conn.
func (in *Interpreter) Pipe() net.Conn {
	client, server := net.Pipe()

	in.mu.Lock()
	in.launches++
	in.mu.Unlock()

	in.wg.Add(1)
	go in.serve(server)
	return client
}

func (in *Interpreter) serve(conn net.Conn) {
	defer in.wg.Done()
	defer conn.Close()

	if _, err := io.WriteString(conn, in.Banner+in.Prompt); err != nil {
		return
	}

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		in.mu.Lock()
		in.lines = append(in.lines, line)
		in.mu.Unlock()

		if in.Quit != "" && line == in.Quit {
			return
		}

		var reply Reply
		if in.Respond != nil {
			reply = in.Respond(line)
		}
		if reply.Hang {
			continue
		}
		if reply.Delay > 0 {
			time.Sleep(reply.Delay)
		}

		out := reply.Output
		if in.Echo {
			out = line + "\r\n" + out
		}
		if !reply.Close {
			out += in.Prompt
		}
		if _, err := io.WriteString(conn, out); err != nil {
			return
		}
		if reply.Close {
			return
		}
	}
}

// Lines returns every line received so far, across all launches.
func (in *Interpreter) Lines() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.lines...)
}

// Launches returns how many sessions were started.
func (in *Interpreter) Launches() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.launches
}

// Closes returns how many times a client stream was closed.
func (in *Interpreter) Closes() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.closes
}

// Wait blocks until every served connection has finished.
func (in *Interpreter) Wait() {
	in.wg.Wait()
}

type stream struct {
	net.Conn
	in *Interpreter
}

func (s *stream) Close() error {
	s.in.mu.Lock()
	s.in.closes++
	s.in.mu.Unlock()
	return s.Conn.Close()
}
