package docker

import (
	"context"
	"errors"
	"sync"

	"github.com/moby/moby/client"

	"github.com/schmitthub/testdb/internal/session"
)

// Wide enough that psql never wraps an echoed command across lines.
var execConsoleSize = client.ConsoleSize{Height: 50, Width: 1000}

// ExecLauncher opens an interactive TTY exec inside a running container and
// hands the hijacked connection to the session driver.
type ExecLauncher struct {
	API       APIClient
	Container string
	Cmd       []string
	Env       []string
}

// Launch implements session.Launcher.
func (l ExecLauncher) Launch(ctx context.Context) (session.Stream, error) {
	if len(l.Cmd) == 0 {
		return nil, errors.New("exec command is empty")
	}

	created, err := l.API.ExecCreate(ctx, l.Container, client.ExecCreateOptions{
		TTY:          true,
		ConsoleSize:  execConsoleSize,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Env:          l.Env,
		Cmd:          l.Cmd,
	})
	if err != nil {
		return nil, ErrExecFailed(l.Container, err)
	}
	if created.ID == "" {
		return nil, ErrExecFailed(l.Container, errors.New("exec instance returned empty ID"))
	}

	attached, err := l.API.ExecAttach(ctx, created.ID, client.ExecAttachOptions{
		TTY:         true,
		ConsoleSize: execConsoleSize,
	})
	if err != nil {
		return nil, ErrExecFailed(l.Container, err)
	}
	return &execStream{resp: attached.HijackedResponse}, nil
}

// execStream adapts a raw TTY hijacked response to session.Stream.
type execStream struct {
	resp client.HijackedResponse
	once sync.Once
}

func (s *execStream) Read(p []byte) (int, error) {
	return s.resp.Reader.Read(p)
}

func (s *execStream) Write(p []byte) (int, error) {
	return s.resp.Conn.Write(p)
}

func (s *execStream) Close() error {
	s.once.Do(s.resp.Close)
	return nil
}
