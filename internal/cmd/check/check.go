// Package check provides the check command.
package check

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/config"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/pgcheck"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	IOStreams *iostreams.IOStreams
	Config    func() (*config.Config, error)
	Verify    func(ctx context.Context, dsn, db, owner string) (*pgcheck.Report, error)

	Timeout time.Duration
}

// NewCmdCheck creates the check command.
func NewCmdCheck(f *cmdutil.Factory, runF func(context.Context, *CheckOptions) error) *cobra.Command {
	opts := &CheckOptions{
		IOStreams: f.IOStreams,
		Config:    f.Config,
		Verify:    pgcheck.Verify,
	}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the provisioned database",
		Long: `Connects to the mapped host port as the application user and checks that
the database exists and is owned by that user.`,
		Example: `  testdb check`,
		Args:    cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return checkRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "Connection and query timeout")

	return cmd
}

func checkRun(ctx context.Context, opts *CheckOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	cfg, err := opts.Config()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	dsn := pgcheck.DSN(cfg)
	rep, err := opts.Verify(ctx, dsn, cfg.DatabaseName(), cfg.Database.User)
	if err != nil {
		fmt.Fprintf(ios.ErrOut, "%s Check failed for %s\n", cs.FailureIcon(), pgcheck.Redact(dsn))
		return err
	}

	fmt.Fprintf(ios.Out, "%s Connected as %s to %s (PostgreSQL %s)\n", cs.SuccessIcon(), rep.CurrentUser, rep.CurrentDatabase, rep.ServerVersion)
	fmt.Fprintf(ios.Out, "%s Database '%s' is owned by '%s'\n", cs.SuccessIcon(), cfg.DatabaseName(), rep.Owner)
	return nil
}
