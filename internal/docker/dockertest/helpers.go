package dockertest

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"

	"github.com/schmitthub/testdb/internal/session/sessiontest"
)

// NotFoundError satisfies errdefs.IsNotFound.
type NotFoundError struct {
	Msg string
}

func (e NotFoundError) Error() string { return e.Msg }
func (e NotFoundError) NotFound()     {}

// NotFound returns an error the daemon would report for a missing object.
func NotFound(ref string) error {
	return NotFoundError{Msg: "No such object: " + ref}
}

// PullResponse is a canned client.ImagePullResponse. Only Read, Close and
// Wait are implemented; the embedded nil interface panics on anything else.
type PullResponse struct {
	client.ImagePullResponse

	body    io.Reader
	waitErr error
	closed  bool
}

// NewPullResponse returns a response that streams body and whose Wait
// returns waitErr.
func NewPullResponse(body string, waitErr error) *PullResponse {
	return &PullResponse{body: strings.NewReader(body), waitErr: waitErr}
}

func (p *PullResponse) Read(b []byte) (int, error) { return p.body.Read(b) }

func (p *PullResponse) Close() error {
	p.closed = true
	return nil
}

func (p *PullResponse) Wait(ctx context.Context) error {
	_, _ = io.Copy(io.Discard, p.body)
	return p.waitErr
}

// Closed reports whether Close was called.
func (p *PullResponse) Closed() bool { return p.closed }

// SetupPing makes Ping succeed.
func (f *FakeAPIClient) SetupPing() {
	f.PingFn = func(context.Context, client.PingOptions) (client.PingResult, error) {
		return client.PingResult{APIVersion: "1.52", OSType: "linux"}, nil
	}
}

// SetupPull makes ImagePull return a response whose Wait returns waitErr.
// The last response is returned for assertions.
func (f *FakeAPIClient) SetupPull(waitErr error) *PullResponse {
	resp := NewPullResponse(`{"status":"Pulling from library/postgres"}`+"\n", waitErr)
	f.ImagePullFn = func(context.Context, string, client.ImagePullOptions) (client.ImagePullResponse, error) {
		return resp, nil
	}
	return resp
}

// SetupPullError makes ImagePull fail immediately.
func (f *FakeAPIClient) SetupPullError(err error) {
	f.ImagePullFn = func(context.Context, string, client.ImagePullOptions) (client.ImagePullResponse, error) {
		return nil, err
	}
}

// SetupRemove makes ContainerRemove return err (nil for success).
func (f *FakeAPIClient) SetupRemove(err error) {
	f.ContainerRemoveFn = func(context.Context, string, client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
		return client.ContainerRemoveResult{}, err
	}
}

// CreateRecorder captures container create options.
type CreateRecorder struct {
	mu      sync.Mutex
	Options []client.ContainerCreateOptions
}

// Last returns the most recent create options.
func (r *CreateRecorder) Last() client.ContainerCreateOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Options) == 0 {
		return client.ContainerCreateOptions{}
	}
	return r.Options[len(r.Options)-1]
}

// SetupRun makes ContainerCreate and ContainerStart succeed, returning id.
func (f *FakeAPIClient) SetupRun(id string) *CreateRecorder {
	rec := &CreateRecorder{}
	f.ContainerCreateFn = func(_ context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
		rec.mu.Lock()
		rec.Options = append(rec.Options, opts)
		rec.mu.Unlock()
		return client.ContainerCreateResult{ID: id}, nil
	}
	f.ContainerStartFn = func(context.Context, string, client.ContainerStartOptions) (client.ContainerStartResult, error) {
		return client.ContainerStartResult{}, nil
	}
	return rec
}

// SetupInspect makes ContainerInspect return resp for name and not-found
// for anything else.
func (f *FakeAPIClient) SetupInspect(name string, resp container.InspectResponse) {
	f.ContainerInspectFn = func(_ context.Context, id string, _ client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
		if id != name {
			return client.ContainerInspectResult{}, NotFound(id)
		}
		return client.ContainerInspectResult{Container: resp}, nil
	}
}

// SetupExec wires ExecCreate and ExecAttach to a scripted interpreter so that
// sessions opened through docker.ExecLauncher talk to it.
func (f *FakeAPIClient) SetupExec(in *sessiontest.Interpreter) {
	f.ExecCreateFn = func(context.Context, string, client.ExecCreateOptions) (client.ExecCreateResult, error) {
		return client.ExecCreateResult{ID: "exec-1"}, nil
	}
	f.ExecAttachFn = func(context.Context, string, client.ExecAttachOptions) (client.ExecAttachResult, error) {
		return client.ExecAttachResult{
			HijackedResponse: client.NewHijackedResponse(in.Pipe(), "application/vnd.docker.raw-stream"),
		}, nil
	}
}
