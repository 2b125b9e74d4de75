// Package down provides the down command.
package down

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/provision"
)

// DownOptions holds options for the down command.
type DownOptions struct {
	IOStreams   *iostreams.IOStreams
	Provisioner func(ctx context.Context, runtime string) (*provision.Provisioner, error)

	Runtime string
}

// NewCmdDown creates the down command.
func NewCmdDown(f *cmdutil.Factory, runF func(context.Context, *DownOptions) error) *cobra.Command {
	opts := &DownOptions{
		IOStreams:   f.IOStreams,
		Provisioner: f.Provisioner,
	}

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Remove the database container",
		Long: `Force-removes the configured database container together with its data.
A missing container is not an error.`,
		Example: `  # Remove the container named in testdb.yaml
  testdb down`,
		Args: cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return downRun(cmd.Context(), opts)
		},
	}

	cmdutil.RuntimeFlag(cmd.Flags(), &opts.Runtime)

	return cmd
}

func downRun(ctx context.Context, opts *DownOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	p, err := opts.Provisioner(ctx, opts.Runtime)
	if err != nil {
		return err
	}
	name := p.Config.Container.Name

	removed, err := p.Down(ctx)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(ios.ErrOut, "%s Removed container '%s'.\n", cs.SuccessIcon(), name)
	} else {
		fmt.Fprintf(ios.ErrOut, "%s No container '%s' to remove.\n", cs.InfoIcon(), name)
	}
	return nil
}
