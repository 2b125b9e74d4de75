// Package docker is the Docker Engine API runtime for testdb: it pulls the
// database image, replaces the container and opens interactive exec sessions.
package docker

import (
	"context"
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/moby/moby/client"

	"github.com/schmitthub/testdb/internal/logger"
	"github.com/schmitthub/testdb/internal/session"
)

// APIClient is the subset of the moby client testdb uses.
// *client.Client satisfies it; tests use dockertest.FakeAPIClient.
type APIClient interface {
	Ping(ctx context.Context, options client.PingOptions) (client.PingResult, error)
	ImagePull(ctx context.Context, ref string, options client.ImagePullOptions) (client.ImagePullResponse, error)
	ContainerCreate(ctx context.Context, options client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	ContainerStart(ctx context.Context, containerID string, options client.ContainerStartOptions) (client.ContainerStartResult, error)
	ContainerRemove(ctx context.Context, containerID string, options client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)
	ContainerInspect(ctx context.Context, containerID string, options client.ContainerInspectOptions) (client.ContainerInspectResult, error)
	ExecCreate(ctx context.Context, containerID string, options client.ExecCreateOptions) (client.ExecCreateResult, error)
	ExecAttach(ctx context.Context, execID string, options client.ExecAttachOptions) (client.ExecAttachResult, error)
	Close() error
}

// Client runs the provisioning container through the Docker Engine API.
type Client struct {
	api APIClient
}

// NewClient connects to the daemon described by the DOCKER_* environment and
// verifies it answers a ping.
func NewClient(ctx context.Context) (*Client, error) {
	cli, err := client.New(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, ErrDockerNotRunning(err)
	}
	if _, err := cli.Ping(ctx, client.PingOptions{}); err != nil {
		cli.Close()
		return nil, ErrDockerNotRunning(err)
	}
	return &Client{api: cli}, nil
}

// NewClientWithAPI wraps an existing API client. Used by tests.
func NewClientWithAPI(api APIClient) *Client {
	return &Client{api: api}
}

// API returns the underlying API client.
func (c *Client) API() APIClient {
	return c.api
}

// Close releases the API client.
func (c *Client) Close() error {
	return c.api.Close()
}

// PullImage pulls ref and waits for the pull to finish.
func (c *Client) PullImage(ctx context.Context, ref string) error {
	logger.Debug().Str("image", ref).Msg("pulling image")

	resp, err := c.api.ImagePull(ctx, ref, client.ImagePullOptions{})
	if err != nil {
		return pullError(ref, err)
	}
	defer resp.Close()

	if err := resp.Wait(ctx); err != nil {
		return pullError(ref, err)
	}
	return nil
}

func pullError(ref string, err error) error {
	if cerrdefs.IsNotFound(err) {
		return ErrImageNotFound(ref, err)
	}
	return ErrImagePullFailed(ref, err)
}

// RemoveContainer force-removes the named container. A missing container is
// not an error and reports removed=false.
func (c *Client) RemoveContainer(ctx context.Context, name string) (bool, error) {
	_, err := c.api.ContainerRemove(ctx, name, client.ContainerRemoveOptions{Force: true})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			logger.Debug().Str("container", name).Msg("no existing container to remove")
			return false, nil
		}
		return false, fmt.Errorf("removing container %s: %w", name, err)
	}
	logger.Debug().Str("container", name).Msg("removed existing container")
	return true, nil
}

// RunContainer creates and starts a detached container from spec.
func (c *Client) RunContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	opts, err := spec.CreateOptions()
	if err != nil {
		return "", err
	}

	created, err := c.api.ContainerCreate(ctx, opts)
	if err != nil {
		return "", ErrContainerCreateFailed(spec.Name, err)
	}
	for _, w := range created.Warnings {
		logger.Warn().Str("container", spec.Name).Msg(w)
	}

	if _, err := c.api.ContainerStart(ctx, created.ID, client.ContainerStartOptions{}); err != nil {
		return created.ID, ErrContainerStartFailed(spec.Name, err)
	}

	logger.Debug().Str("container", spec.Name).Str("id", created.ID).Msg("container started")
	return created.ID, nil
}

// InspectContainer reports the state of the named container. A missing
// container yields Exists=false and no error.
func (c *Client) InspectContainer(ctx context.Context, name string) (ContainerStatus, error) {
	res, err := c.api.ContainerInspect(ctx, name, client.ContainerInspectOptions{})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return ContainerStatus{Name: name}, nil
		}
		return ContainerStatus{}, fmt.Errorf("inspecting container %s: %w", name, err)
	}
	return StatusFromInspect(name, res.Container), nil
}

// Launcher returns a session launcher running cmd inside the named container.
func (c *Client) Launcher(container string, cmd []string) session.Launcher {
	return ExecLauncher{API: c.api, Container: container, Cmd: cmd}
}
