// Package dockercli is the docker CLI runtime for testdb. Every operation is
// a one-shot docker command; sessions run "docker exec -it" under a
// pseudo-terminal.
package dockercli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/moby/moby/api/types/container"

	"github.com/schmitthub/testdb/internal/docker"
	"github.com/schmitthub/testdb/internal/logger"
	"github.com/schmitthub/testdb/internal/session"
)

// DefaultBinary is the docker executable looked up on PATH.
const DefaultBinary = "docker"

// CommandRunner runs name with args and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Runner implements the provisioning runtime with the docker CLI.
type Runner struct {
	Binary string
	Run    CommandRunner
}

// New returns a Runner using the docker binary on PATH.
func New() *Runner {
	return &Runner{Binary: DefaultBinary, Run: ExecRunner}
}

// CommandError is a failed docker invocation.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("docker %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// notFound reports whether the daemon said the object does not exist.
func (e *CommandError) notFound() bool {
	return strings.Contains(e.Output, "No such container") || strings.Contains(e.Output, "No such object")
}

func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	logger.Debug().Strs("args", args).Msg("running docker")
	out, err := r.Run(ctx, r.Binary, args...)
	text := strings.TrimSpace(string(out))
	if err != nil {
		return text, &CommandError{Args: args, Output: text, Err: err}
	}
	return text, nil
}

// PullImage runs "docker pull ref".
func (r *Runner) PullImage(ctx context.Context, ref string) error {
	if _, err := r.run(ctx, PullArgs(ref)...); err != nil {
		var cErr *CommandError
		if errors.As(err, &cErr) && (strings.Contains(cErr.Output, "not found") || strings.Contains(cErr.Output, "manifest unknown")) {
			return docker.ErrImageNotFound(ref, err)
		}
		return docker.ErrImagePullFailed(ref, err)
	}
	return nil
}

// RemoveContainer runs "docker rm -f name". A missing container reports
// removed=false without error.
func (r *Runner) RemoveContainer(ctx context.Context, name string) (bool, error) {
	if _, err := r.run(ctx, RemoveArgs(name)...); err != nil {
		var cErr *CommandError
		if errors.As(err, &cErr) && cErr.notFound() {
			return false, nil
		}
		return false, fmt.Errorf("removing container %s: %w", name, err)
	}
	return true, nil
}

// RunContainer runs "docker run -d" for spec and returns the container ID.
func (r *Runner) RunContainer(ctx context.Context, spec docker.ContainerSpec) (string, error) {
	args, err := RunArgs(spec)
	if err != nil {
		return "", err
	}
	out, err := r.run(ctx, args...)
	if err != nil {
		return "", docker.ErrContainerStartFailed(spec.Name, err)
	}
	// Pull progress may precede the ID when the image is not local.
	lines := strings.Split(out, "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

// InspectContainer runs "docker inspect" and summarizes the result. A missing
// container yields Exists=false and no error.
func (r *Runner) InspectContainer(ctx context.Context, name string) (docker.ContainerStatus, error) {
	out, err := r.run(ctx, InspectArgs(name)...)
	if err != nil {
		var cErr *CommandError
		if errors.As(err, &cErr) && cErr.notFound() {
			return docker.ContainerStatus{Name: name}, nil
		}
		return docker.ContainerStatus{}, fmt.Errorf("inspecting container %s: %w", name, err)
	}

	var infos []container.InspectResponse
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		return docker.ContainerStatus{}, fmt.Errorf("decoding inspect output: %w", err)
	}
	if len(infos) == 0 {
		return docker.ContainerStatus{Name: name}, nil
	}
	return docker.StatusFromInspect(name, infos[0]), nil
}

// Launcher returns a pseudo-terminal launcher for "docker exec -it container cmd".
func (r *Runner) Launcher(containerName string, cmd []string) session.Launcher {
	words := append([]string{r.Binary, "exec", "-it", containerName}, cmd...)
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = quote(w)
	}
	return session.PTYLauncher{Command: strings.Join(quoted, " ")}
}

// quote wraps w in single quotes when shell splitting would change it.
func quote(w string) string {
	if w != "" && !strings.ContainsAny(w, " \t\n'\"\\#") {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'"'"'`) + "'"
}

// PullArgs returns the arguments of "docker pull".
func PullArgs(ref string) []string {
	return []string{"pull", ref}
}

// RemoveArgs returns the arguments of "docker rm -f".
func RemoveArgs(name string) []string {
	return []string{"rm", "-f", name}
}

// InspectArgs returns the arguments of "docker inspect" for a container.
func InspectArgs(name string) []string {
	return []string{"inspect", "--type", "container", name}
}

// RunArgs returns the arguments of "docker run -d" for spec. Labels are
// sorted so the argument list is stable.
func RunArgs(spec docker.ContainerSpec) ([]string, error) {
	if spec.Image == "" {
		return nil, errors.New("container image is required")
	}
	args := []string{"run", "-d"}
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	for _, e := range spec.Env {
		args = append(args, "-e", e)
	}
	for _, p := range spec.Ports {
		args = append(args, "-p", p)
	}
	for _, m := range spec.Mounts {
		if m.Source == "" || m.Target == "" {
			return nil, fmt.Errorf("invalid bind mount %q:%q", m.Source, m.Target)
		}
		v := m.Source + ":" + m.Target
		if m.ReadOnly {
			v += ":ro"
		}
		args = append(args, "-v", v)
	}

	keys := make([]string, 0, len(spec.Labels))
	for k := range spec.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-l", k+"="+spec.Labels[k])
	}

	return append(args, spec.Image), nil
}
