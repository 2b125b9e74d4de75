package cmdutil

import (
	"context"

	"github.com/schmitthub/testdb/internal/config"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/provision"
)

// Factory provides shared dependencies for CLI commands.
// It is a dependency injection container: the struct defines what
// dependencies exist (the contract), while internal/cmd/factory
// wires the real implementations.
//
// Closure fields are set by the factory constructor and use lazy
// initialization internally. Commands extract only the fields they
// need into per-command Options structs.
type Factory struct {
	// Configuration from flags (set before command execution)
	WorkDir    string
	ConfigFile string
	Debug      bool

	// Version info (set at build time via ldflags)
	Version string
	Commit  string

	// RunID identifies this invocation in labels and logs.
	RunID string

	// IO streams for input/output (for testability)
	IOStreams *iostreams.IOStreams

	Config func() (*config.Config, error)

	// Runtime returns the container runtime by name ("sdk" or "cli"); an
	// empty name uses session.runtime from the config.
	Runtime      func(ctx context.Context, name string) (provision.Runtime, error)
	CloseRuntime func()

	// Provisioner assembles a provisioner over Config and Runtime(name).
	Provisioner func(ctx context.Context, runtime string) (*provision.Provisioner, error)
}
