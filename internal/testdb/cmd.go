// Package testdb is the entry point of the testdb CLI.
package testdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testdb/internal/cmd/factory"
	"github.com/schmitthub/testdb/internal/cmd/root"
	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/logger"
	"github.com/schmitthub/testdb/internal/signals"
)

// Build-time variables injected via ldflags
var (
	Version = "dev"
	Commit  = "none"
)

const (
	exitOk    = cmdutil.ExitOK
	exitError = cmdutil.ExitFailure
	exitUsage = cmdutil.ExitUsage
)

// Main is the entry point for the testdb CLI.
// It initializes the Factory, creates the root command, and executes it.
func Main() int {
	// Ensure logs are flushed on exit
	defer logger.CloseFileWriter()

	// Ctrl-C cancels waits; open sessions are still closed on the way out.
	ctx, cancel := signals.SetupSignalContext(context.Background())
	defer cancel()

	f := factory.New(Version, Commit)
	return run(ctx, f, root.NewCmdRoot(f))
}

func run(ctx context.Context, f *cmdutil.Factory, rootCmd *cobra.Command) int {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if f.CloseRuntime != nil {
		f.CloseRuntime()
	}
	if cmd == nil {
		cmd = rootCmd
	}
	return exitCode(f.IOStreams, cmd, err)
}

// exitCode reports err to the user and maps it to a process exit status.
func exitCode(ios *iostreams.IOStreams, cmd *cobra.Command, err error) int {
	code := cmdutil.ExitCode(err)
	if err == nil || errors.Is(err, cmdutil.SilentError) {
		return code
	}

	var flagErr *cmdutil.FlagError
	if errors.As(err, &flagErr) {
		fmt.Fprintln(ios.ErrOut, err)
		fmt.Fprintln(ios.ErrOut)
		fmt.Fprint(ios.ErrOut, cmd.UsageString())
		return code
	}

	var exitErr *cmdutil.ExitError
	if errors.As(err, &exitErr) {
		return code
	}

	logger.Debug().Err(err).Str("command", cmd.CommandPath()).Msg("command failed")
	cmdutil.PrintError(ios, err)
	cmdutil.PrintHelpHint(ios, cmd.CommandPath())
	return code
}
