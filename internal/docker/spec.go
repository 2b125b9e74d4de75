package docker

import (
	"fmt"
	"net/netip"
	"sort"

	"github.com/docker/go-connections/nat"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// ContainerSpec describes a detached container, the Engine API equivalent of
// "docker run -d --name NAME -e ENV -p PORT -v SRC:DST -l LABEL IMAGE".
type ContainerSpec struct {
	Name   string
	Image  string
	Env    []string          // KEY=VALUE
	Ports  []string          // docker port specs, e.g. "1402:5432"
	Mounts []BindMount       // host directories
	Labels map[string]string // container labels
}

// BindMount maps a host directory into the container.
type BindMount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// CreateOptions translates s into Engine API create options.
func (s ContainerSpec) CreateOptions() (client.ContainerCreateOptions, error) {
	exposed, bindings, err := parsePorts(s.Ports)
	if err != nil {
		return client.ContainerCreateOptions{}, err
	}

	mounts := make([]mount.Mount, 0, len(s.Mounts))
	for _, m := range s.Mounts {
		if m.Source == "" || m.Target == "" {
			return client.ContainerCreateOptions{}, fmt.Errorf("invalid bind mount %q:%q", m.Source, m.Target)
		}
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	return client.ContainerCreateOptions{
		Name: s.Name,
		Config: &container.Config{
			Image:        s.Image,
			Env:          s.Env,
			Labels:       s.Labels,
			ExposedPorts: exposed,
		},
		HostConfig: &container.HostConfig{
			PortBindings: bindings,
			Mounts:       mounts,
		},
	}, nil
}

func parsePorts(specs []string) (network.PortSet, network.PortMap, error) {
	exposed := make(network.PortSet)
	bindings := make(network.PortMap)

	for _, spec := range specs {
		mappings, err := nat.ParsePortSpec(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid port mapping %q: %w", spec, err)
		}
		for _, pm := range mappings {
			port, err := network.ParsePort(string(pm.Port))
			if err != nil {
				return nil, nil, fmt.Errorf("invalid port %q: %w", pm.Port, err)
			}
			exposed[port] = struct{}{}

			var hostIP netip.Addr
			if pm.Binding.HostIP != "" {
				hostIP, err = netip.ParseAddr(pm.Binding.HostIP)
				if err != nil {
					return nil, nil, fmt.Errorf("invalid host IP %q: %w", pm.Binding.HostIP, err)
				}
			}
			bindings[port] = append(bindings[port], network.PortBinding{
				HostIP:   hostIP,
				HostPort: pm.Binding.HostPort,
			})
		}
	}
	return exposed, bindings, nil
}

// ContainerStatus is the subset of inspect output "testdb status" reports.
type ContainerStatus struct {
	Name    string
	Exists  bool
	ID      string
	Image   string
	Status  string
	Running bool
	// StartedAt is the RFC3339 start time reported by the daemon.
	StartedAt string
	// Ports lists host bindings as "host:container/proto", sorted.
	Ports   []string
	Managed bool
}

// StatusFromInspect summarizes a daemon inspect response.
func StatusFromInspect(name string, info container.InspectResponse) ContainerStatus {
	st := ContainerStatus{
		Name:   name,
		Exists: true,
		ID:     info.ID,
	}
	if info.Config != nil {
		st.Image = info.Config.Image
		st.Managed = IsManaged(info.Config.Labels)
	}
	if info.State != nil {
		st.Status = string(info.State.Status)
		st.Running = info.State.Running
		st.StartedAt = info.State.StartedAt
	}
	if info.HostConfig != nil {
		for port, binds := range info.HostConfig.PortBindings {
			for _, b := range binds {
				st.Ports = append(st.Ports, fmt.Sprintf("%s:%d/%s", b.HostPort, port.Num(), port.Proto()))
			}
		}
		sort.Strings(st.Ports)
	}
	return st
}
