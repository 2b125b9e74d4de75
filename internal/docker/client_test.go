package docker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testdb/internal/docker"
	"github.com/schmitthub/testdb/internal/docker/dockertest"
	"github.com/schmitthub/testdb/internal/session"
	"github.com/schmitthub/testdb/internal/session/sessiontest"
)

func TestPullImage(t *testing.T) {
	t.Run("success closes the response", func(t *testing.T) {
		fake := dockertest.NewFakeAPIClient()
		resp := fake.SetupPull(nil)
		c := docker.NewClientWithAPI(fake)

		require.NoError(t, c.PullImage(context.Background(), "postgres"))
		assert.True(t, resp.Closed())
		assert.Equal(t, []string{"ImagePull"}, fake.CallLog())
	})

	t.Run("not found", func(t *testing.T) {
		fake := dockertest.NewFakeAPIClient()
		fake.SetupPullError(dockertest.NotFound("postgres:nope"))
		c := docker.NewClientWithAPI(fake)

		err := c.PullImage(context.Background(), "postgres:nope")
		var dErr *docker.DockerError
		require.ErrorAs(t, err, &dErr)
		assert.Equal(t, "pull", dErr.Op)
		assert.Contains(t, dErr.Message, "not found")
	})

	t.Run("failure while streaming", func(t *testing.T) {
		fake := dockertest.NewFakeAPIClient()
		fake.SetupPull(errors.New("connection reset"))
		c := docker.NewClientWithAPI(fake)

		err := c.PullImage(context.Background(), "postgres")
		var dErr *docker.DockerError
		require.ErrorAs(t, err, &dErr)
		assert.Contains(t, dErr.Message, "Failed to pull image 'postgres'")
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestRemoveContainer(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantRemoved bool
		wantErr     bool
	}{
		{name: "removed", wantRemoved: true},
		{name: "not found", err: dockertest.NotFound("muproc")},
		{name: "daemon error", err: errors.New("permission denied"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := dockertest.NewFakeAPIClient()
			var gotOpts client.ContainerRemoveOptions
			fake.ContainerRemoveFn = func(_ context.Context, id string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
				assert.Equal(t, "muproc", id)
				gotOpts = opts
				return client.ContainerRemoveResult{}, tt.err
			}
			c := docker.NewClientWithAPI(fake)

			removed, err := c.RemoveContainer(context.Background(), "muproc")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "removing container muproc")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantRemoved, removed)
			assert.True(t, gotOpts.Force)
		})
	}
}

func TestRunContainer(t *testing.T) {
	fake := dockertest.NewFakeAPIClient()
	rec := fake.SetupRun("abc123")
	c := docker.NewClientWithAPI(fake)

	id, err := c.RunContainer(context.Background(), docker.ContainerSpec{
		Name:   "muproc",
		Image:  "postgres",
		Env:    []string{"POSTGRES_PASSWORD=secret"},
		Ports:  []string{"1402:5432"},
		Mounts: []docker.BindMount{{Source: "/work", Target: "/tmp"}},
		Labels: docker.ContainerLabels("muproc", "run-1", nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, []string{"ContainerCreate", "ContainerStart"}, fake.CallLog())

	opts := rec.Last()
	assert.Equal(t, "muproc", opts.Name)
	assert.Equal(t, "postgres", opts.Config.Image)
	assert.True(t, docker.IsManaged(opts.Config.Labels))
}

func TestRunContainer_StartFailure(t *testing.T) {
	fake := dockertest.NewFakeAPIClient()
	fake.SetupRun("abc123")
	fake.ContainerStartFn = func(context.Context, string, client.ContainerStartOptions) (client.ContainerStartResult, error) {
		return client.ContainerStartResult{}, errors.New("port is already allocated")
	}
	c := docker.NewClientWithAPI(fake)

	id, err := c.RunContainer(context.Background(), docker.ContainerSpec{Name: "muproc", Image: "postgres"})
	var dErr *docker.DockerError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "start", dErr.Op)
	assert.Equal(t, "abc123", id)
}

func TestRunContainer_CreateFailure(t *testing.T) {
	fake := dockertest.NewFakeAPIClient()
	fake.ContainerCreateFn = func(context.Context, client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
		return client.ContainerCreateResult{}, errors.New("conflict")
	}
	c := docker.NewClientWithAPI(fake)

	_, err := c.RunContainer(context.Background(), docker.ContainerSpec{Name: "muproc", Image: "postgres"})
	var dErr *docker.DockerError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "create", dErr.Op)
	assert.NotContains(t, fake.CallLog(), "ContainerStart")
}

func TestInspectContainer(t *testing.T) {
	port, err := network.ParsePort("5432/tcp")
	require.NoError(t, err)

	fake := dockertest.NewFakeAPIClient()
	fake.SetupInspect("muproc", container.InspectResponse{
		ID: "abc123",
		Config: &container.Config{
			Image:  "postgres",
			Labels: docker.ContainerLabels("muproc", "", nil),
		},
		State: &container.State{
			Status:    container.StateRunning,
			Running:   true,
			StartedAt: "2026-01-02T03:04:05Z",
		},
		HostConfig: &container.HostConfig{
			PortBindings: network.PortMap{
				port: []network.PortBinding{{HostPort: "1402"}},
			},
		},
	})
	c := docker.NewClientWithAPI(fake)

	t.Run("running", func(t *testing.T) {
		st, err := c.InspectContainer(context.Background(), "muproc")
		require.NoError(t, err)
		assert.True(t, st.Exists)
		assert.True(t, st.Running)
		assert.True(t, st.Managed)
		assert.Equal(t, "abc123", st.ID)
		assert.Equal(t, "running", st.Status)
		assert.Equal(t, []string{"1402:5432/tcp"}, st.Ports)
	})

	t.Run("missing", func(t *testing.T) {
		st, err := c.InspectContainer(context.Background(), "other")
		require.NoError(t, err)
		assert.False(t, st.Exists)
		assert.Equal(t, "other", st.Name)
	})
}

func TestNewClient_NoDaemon(t *testing.T) {
	t.Setenv("DOCKER_HOST", "unix:///nonexistent/testdb.sock")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := docker.NewClient(ctx)
	var dErr *docker.DockerError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "connect", dErr.Op)
}

func TestExecLauncher_DrivesSession(t *testing.T) {
	in := &sessiontest.Interpreter{
		Banner: "psql (16.2)\nType \"help\" for help.\n\n",
		Prompt: "postgres=# ",
		Quit:   `\q`,
		Respond: func(line string) sessiontest.Reply {
			if line == "CREATE DATABASE muproc;" {
				return sessiontest.Reply{Output: "CREATE DATABASE\n"}
			}
			return sessiontest.Reply{Output: "ERROR:  syntax error\n"}
		},
	}
	fake := dockertest.NewFakeAPIClient()
	fake.SetupExec(in)

	var createOpts client.ExecCreateOptions
	fake.ExecCreateFn = func(_ context.Context, id string, opts client.ExecCreateOptions) (client.ExecCreateResult, error) {
		assert.Equal(t, "muproc", id)
		createOpts = opts
		return client.ExecCreateResult{ID: "exec-1"}, nil
	}

	c := docker.NewClientWithAPI(fake)
	launcher := c.Launcher("muproc", []string{"psql", "-h", "localhost", "-U", "postgres"})

	s, err := session.Open(context.Background(), launcher, session.Options{
		ReadyPattern:   "postgres=#",
		StartupTimeout: 2 * time.Second,
		QuitCommand:    `\q`,
	})
	require.NoError(t, err)

	got := session.RunBatch(s, []string{"CREATE DATABASE muproc;", "CREATE DATABSE x;"}, session.Expectation{
		Ready:   "postgres=#",
		Error:   "ERROR",
		Timeout: 2 * time.Second,
	}, nil)
	require.NoError(t, s.Close())
	in.Wait()

	require.Len(t, got, 2)
	assert.Equal(t, session.OutcomeSuccess, got[0].Outcome)
	assert.Equal(t, session.OutcomeCommandError, got[1].Outcome)
	assert.Contains(t, got[1].Detail, "syntax error")

	assert.True(t, createOpts.TTY)
	assert.True(t, createOpts.AttachStdin)
	assert.Equal(t, []string{"psql", "-h", "localhost", "-U", "postgres"}, createOpts.Cmd)
	assert.Equal(t, []string{"CREATE DATABASE muproc;", "CREATE DATABSE x;", `\q`}, in.Lines())
}

func TestExecLauncher_Errors(t *testing.T) {
	t.Run("empty command", func(t *testing.T) {
		l := docker.ExecLauncher{API: dockertest.NewFakeAPIClient(), Container: "muproc"}
		_, err := l.Launch(context.Background())
		require.Error(t, err)
	})

	t.Run("create fails", func(t *testing.T) {
		fake := dockertest.NewFakeAPIClient()
		fake.ExecCreateFn = func(context.Context, string, client.ExecCreateOptions) (client.ExecCreateResult, error) {
			return client.ExecCreateResult{}, errors.New("container is not running")
		}
		l := docker.ExecLauncher{API: fake, Container: "muproc", Cmd: []string{"psql"}}
		_, err := l.Launch(context.Background())
		var dErr *docker.DockerError
		require.ErrorAs(t, err, &dErr)
		assert.Equal(t, "exec", dErr.Op)
		assert.NotContains(t, fake.CallLog(), "ExecAttach")
	})

	t.Run("empty exec ID", func(t *testing.T) {
		fake := dockertest.NewFakeAPIClient()
		fake.ExecCreateFn = func(context.Context, string, client.ExecCreateOptions) (client.ExecCreateResult, error) {
			return client.ExecCreateResult{}, nil
		}
		l := docker.ExecLauncher{API: fake, Container: "muproc", Cmd: []string{"psql"}}
		_, err := l.Launch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty ID")
	})
}
