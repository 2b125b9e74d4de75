package session

import (
	"context"
	"io"
)

// Stream is the duplex byte stream of an interactive process: reads return
// its terminal output, writes go to its input.
type Stream interface {
	io.ReadWriteCloser
}

// Launcher starts an interactive process and returns its stream.
type Launcher interface {
	Launch(ctx context.Context) (Stream, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Stream, error)

// Launch calls f(ctx).
func (f LauncherFunc) Launch(ctx context.Context) (Stream, error) {
	return f(ctx)
}

const (
	readChunkSize = 4096
	chunkBuffer   = 64
)

type chunk struct {
	data []byte
	err  error
}

// pump copies r into out until r fails or done is closed. The final chunk
// carries the read error. pump never touches session state.
func pump(r io.Reader, out chan<- chunk, done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case out <- chunk{data: data}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case out <- chunk{err: err}:
			case <-done:
			}
			return
		}
	}
}
