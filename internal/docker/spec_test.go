package docker

import (
	"testing"

	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/api/types/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerSpec_CreateOptions(t *testing.T) {
	spec := ContainerSpec{
		Name:   "muproc",
		Image:  "postgres:16",
		Env:    []string{"POSTGRES_PASSWORD=H0nd@666"},
		Ports:  []string{"1402:5432"},
		Mounts: []BindMount{{Source: "/home/dev/project", Target: "/tmp"}},
		Labels: map[string]string{"team": "db"},
	}

	opts, err := spec.CreateOptions()
	require.NoError(t, err)

	assert.Equal(t, "muproc", opts.Name)
	require.NotNil(t, opts.Config)
	assert.Equal(t, "postgres:16", opts.Config.Image)
	assert.Equal(t, []string{"POSTGRES_PASSWORD=H0nd@666"}, opts.Config.Env)
	assert.Equal(t, "db", opts.Config.Labels["team"])

	port, err := network.ParsePort("5432/tcp")
	require.NoError(t, err)
	assert.Contains(t, opts.Config.ExposedPorts, port)

	require.NotNil(t, opts.HostConfig)
	bindings := opts.HostConfig.PortBindings[port]
	require.Len(t, bindings, 1)
	assert.Equal(t, "1402", bindings[0].HostPort)
	assert.False(t, bindings[0].HostIP.IsValid())

	require.Len(t, opts.HostConfig.Mounts, 1)
	assert.Equal(t, mount.Mount{Type: mount.TypeBind, Source: "/home/dev/project", Target: "/tmp"}, opts.HostConfig.Mounts[0])
}

func TestContainerSpec_HostIPBinding(t *testing.T) {
	opts, err := ContainerSpec{Name: "muproc", Image: "postgres", Ports: []string{"127.0.0.1:1402:5432/tcp"}}.CreateOptions()
	require.NoError(t, err)

	port, err := network.ParsePort("5432/tcp")
	require.NoError(t, err)
	bindings := opts.HostConfig.PortBindings[port]
	require.Len(t, bindings, 1)
	assert.Equal(t, "127.0.0.1", bindings[0].HostIP.String())
}

func TestContainerSpec_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec ContainerSpec
	}{
		{name: "bad port", spec: ContainerSpec{Ports: []string{"abc:5432"}}},
		{name: "empty mount source", spec: ContainerSpec{Mounts: []BindMount{{Target: "/tmp"}}}},
		{name: "empty mount target", spec: ContainerSpec{Mounts: []BindMount{{Source: "/src"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.CreateOptions()
			assert.Error(t, err)
		})
	}
}

func TestContainerLabels(t *testing.T) {
	labels := ContainerLabels("muproc", "run-1", map[string]string{
		"team":       "db",
		LabelManaged: "false",
	})

	assert.Equal(t, "db", labels["team"])
	assert.Equal(t, ManagedLabelValue, labels[LabelManaged])
	assert.Equal(t, "muproc", labels[LabelContainer])
	assert.Equal(t, "run-1", labels[LabelRunID])
	assert.True(t, IsManaged(labels))

	noRun := ContainerLabels("muproc", "", nil)
	assert.NotContains(t, noRun, LabelRunID)
	assert.False(t, IsManaged(map[string]string{"team": "db"}))
}
