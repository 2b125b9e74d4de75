package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/shlex"
)

// Wide enough that psql never wraps an echoed command across lines.
const (
	ptyRows = 50
	ptyCols = 1000

	ptyExitWait = 2 * time.Second
)

// PTYLauncher runs a host command line under a pseudo-terminal, e.g.
// "docker exec -it muproc psql -h localhost -U postgres".
type PTYLauncher struct {
	// Command is split into words with shell quoting rules.
	Command string
	// Env is appended to the current environment.
	Env []string
}

// Launch starts the command. The returned stream's Close ends the process.
func (l PTYLauncher) Launch(ctx context.Context) (Stream, error) {
	args, err := shlex.Split(l.Command)
	if err != nil {
		return nil, fmt.Errorf("parsing launch command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("launch command is empty")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), l.Env...)

	f, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: ptyRows, Cols: ptyCols})
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", args[0], err)
	}
	return &ptyStream{f: f, cmd: cmd}, nil
}

type ptyStream struct {
	f   *os.File
	cmd *exec.Cmd

	closeOnce sync.Once
	closeErr  error
}

// Read maps the EIO Linux returns once the child side closes to io.EOF.
func (s *ptyStream) Read(p []byte) (int, error) {
	n, err := s.f.Read(p)
	if err != nil && errors.Is(err, syscall.EIO) {
		err = io.EOF
	}
	return n, err
}

func (s *ptyStream) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

func (s *ptyStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.f.Close()

		exited := make(chan struct{})
		go func() {
			_ = s.cmd.Wait()
			close(exited)
		}()
		select {
		case <-exited:
		case <-time.After(ptyExitWait):
			_ = s.cmd.Process.Kill()
			<-exited
		}
	})
	return s.closeErr
}
