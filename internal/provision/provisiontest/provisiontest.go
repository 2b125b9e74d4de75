// Package provisiontest provides an in-memory provision.Runtime backed by
// scripted psql interpreters.
package provisiontest

import (
	"context"
	"strings"
	"sync"

	"github.com/schmitthub/testdb/internal/docker"
	"github.com/schmitthub/testdb/internal/session"
	"github.com/schmitthub/testdb/internal/session/sessiontest"
)

// FakeRuntime records runtime calls and serves sessions from Sessions,
// keyed by the role passed to psql.
type FakeRuntime struct {
	PullErr   error
	RemoveErr error
	Removed   bool
	RunErr    error
	Status    docker.ContainerStatus

	// Sessions maps a psql role to the interpreter that answers for it.
	Sessions map[string]*sessiontest.Interpreter

	mu       sync.Mutex
	calls    []string
	spec     docker.ContainerSpec
	launched []string
}

// NewFakeRuntime returns a runtime whose postgres and muproc sessions
// answer like a fresh server.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{Sessions: map[string]*sessiontest.Interpreter{
		"postgres": SuperuserPsql(),
		"muproc":   UserPsql("muproc"),
	}}
}

func (f *FakeRuntime) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls returns the runtime operations performed, e.g. "pull postgres".
func (f *FakeRuntime) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Launched returns "container: psql args" per session launcher requested.
func (f *FakeRuntime) Launched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.launched...)
}

// Spec returns the last container spec passed to RunContainer.
func (f *FakeRuntime) Spec() docker.ContainerSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spec
}

// Wait blocks until every interpreter finished serving.
func (f *FakeRuntime) Wait() {
	for _, in := range f.Sessions {
		in.Wait()
	}
}

func (f *FakeRuntime) PullImage(_ context.Context, ref string) error {
	f.record("pull " + ref)
	return f.PullErr
}

func (f *FakeRuntime) RemoveContainer(_ context.Context, name string) (bool, error) {
	f.record("rm " + name)
	return f.Removed, f.RemoveErr
}

func (f *FakeRuntime) RunContainer(_ context.Context, spec docker.ContainerSpec) (string, error) {
	f.record("run " + spec.Name)
	f.mu.Lock()
	f.spec = spec
	f.mu.Unlock()
	if f.RunErr != nil {
		return "", f.RunErr
	}
	return "abc123", nil
}

func (f *FakeRuntime) InspectContainer(_ context.Context, name string) (docker.ContainerStatus, error) {
	f.record("inspect " + name)
	return f.Status, nil
}

// Launcher serves the interpreter registered for the psql -U role.
// An unknown role yields a launcher that fails.
func (f *FakeRuntime) Launcher(container string, cmd []string) session.Launcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launched = append(f.launched, container+": "+strings.Join(cmd, " "))

	role := flagValue(cmd, "-U")
	if in, ok := f.Sessions[role]; ok {
		return in
	}
	return session.LauncherFunc(func(context.Context) (session.Stream, error) {
		return nil, &docker.DockerError{Op: "exec", Message: "role " + role + " does not exist"}
	})
}

// SuperuserPsql answers the setup statements like psql connected as
// postgres. Databases in existing collide on CREATE DATABASE.
func SuperuserPsql(existing ...string) *sessiontest.Interpreter {
	var mu sync.Mutex
	dbs := map[string]bool{}
	for _, db := range existing {
		dbs[db] = true
	}
	return &sessiontest.Interpreter{
		Banner: "psql (16.2 (Debian 16.2-1.pgdg120+2))\nType \"help\" for help.\n\n",
		Prompt: "postgres=# ",
		Quit:   `\q`,
		Respond: func(line string) sessiontest.Reply {
			switch {
			case strings.HasPrefix(line, "CREATE USER"):
				return sessiontest.Reply{Output: "CREATE ROLE\n"}
			case strings.HasPrefix(line, "CREATE DATABASE"):
				name := strings.TrimSuffix(strings.TrimPrefix(line, "CREATE DATABASE "), ";")
				mu.Lock()
				defer mu.Unlock()
				if dbs[name] {
					return sessiontest.Reply{Output: "ERROR:  database \"" + name + "\" already exists\n"}
				}
				dbs[name] = true
				return sessiontest.Reply{Output: "CREATE DATABASE\n"}
			case strings.HasPrefix(line, "ALTER DATABASE"):
				return sessiontest.Reply{Output: "ALTER DATABASE\n"}
			case strings.HasPrefix(line, "SELECT"):
				return sessiontest.Reply{Output: " ?column? \n----------\n        1\n(1 row)\n\n"}
			}
			return sessiontest.Reply{Output: "ERROR:  syntax error at or near \"" + firstWord(line) + "\"\n"}
		},
	}
}

// UserPsql answers schema includes like psql connected to db as an
// ordinary role. Only /tmp/database-create.sql exists.
func UserPsql(db string) *sessiontest.Interpreter {
	return &sessiontest.Interpreter{
		Prompt: db + "=> ",
		Quit:   `\q`,
		Respond: func(line string) sessiontest.Reply {
			if line == `\i /tmp/database-create.sql` {
				return sessiontest.Reply{Output: "CREATE TABLE\nCREATE TABLE\n"}
			}
			if strings.HasPrefix(line, `\i `) {
				return sessiontest.Reply{Output: "psql: error: " + strings.TrimPrefix(line, `\i `) + ": No such file or directory\n"}
			}
			return sessiontest.Reply{Output: "ERROR:  permission denied\n"}
		},
	}
}

func flagValue(args []string, name string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == name {
			return args[i+1]
		}
	}
	return ""
}

func firstWord(line string) string {
	if i := strings.IndexByte(line, ' '); i > 0 {
		return line[:i]
	}
	return line
}
