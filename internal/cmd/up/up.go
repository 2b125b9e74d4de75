// Package up provides the up command.
package up

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/logger"
	"github.com/schmitthub/testdb/internal/provision"
)

// UpOptions holds options for the up command.
type UpOptions struct {
	IOStreams   *iostreams.IOStreams
	Provisioner func(ctx context.Context, runtime string) (*provision.Provisioner, error)

	Runtime  string
	SkipPull bool
	Verify   bool
}

// NewCmdUp creates the up command.
func NewCmdUp(f *cmdutil.Factory, runF func(context.Context, *UpOptions) error) *cobra.Command {
	opts := &UpOptions{
		IOStreams:   f.IOStreams,
		Provisioner: f.Provisioner,
	}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Provision a fresh PostgreSQL container",
		Long: `Pulls the database image, replaces any existing container of the same
name, starts a new one and sets it up through interactive psql sessions:

  1. creates the application user
  2. creates the database and hands it to that user
  3. loads every schema file as the application user

Individual SQL failures are reported but do not fail the command. Image,
container and session startup failures do.`,
		Example: `  # Provision with testdb.yaml from the current directory
  testdb up

  # Use the docker CLI instead of the Engine API
  testdb up --runtime cli

  # Reuse the local image and verify ownership afterwards
  testdb up --skip-pull --verify`,
		Args: cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return upRun(cmd.Context(), opts)
		},
	}

	cmdutil.RuntimeFlag(cmd.Flags(), &opts.Runtime)
	cmd.Flags().BoolVar(&opts.SkipPull, "skip-pull", false, "Use the local image without pulling")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "Verify the database over the wire protocol after setup")

	return cmd
}

func upRun(ctx context.Context, opts *UpOptions) error {
	p, err := opts.Provisioner(ctx, opts.Runtime)
	if err != nil {
		return err
	}

	sum, err := p.Up(ctx, provision.UpOptions{
		SkipPull: opts.SkipPull,
		Verify:   opts.Verify,
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str("container_id", sum.ContainerID).
		Int("failed_commands", sum.Failed()).
		Msg("provisioning finished")
	return nil
}
