// Package status provides the status command.
package status

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/docker"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/provision"
)

// StatusOptions holds options for the status command.
type StatusOptions struct {
	IOStreams   *iostreams.IOStreams
	Provisioner func(ctx context.Context, runtime string) (*provision.Provisioner, error)

	Runtime string
	JSON    bool
}

// NewCmdStatus creates the status command.
func NewCmdStatus(f *cmdutil.Factory, runF func(context.Context, *StatusOptions) error) *cobra.Command {
	opts := &StatusOptions{
		IOStreams:   f.IOStreams,
		Provisioner: f.Provisioner,
	}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the database container state",
		Example: `  # Show whether the container is running and where it listens
  testdb status

  # Machine-readable output
  testdb status --json`,
		Args: cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return statusRun(cmd.Context(), opts)
		},
	}

	cmdutil.RuntimeFlag(cmd.Flags(), &opts.Runtime)
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

type statusJSON struct {
	Name      string   `json:"name"`
	Exists    bool     `json:"exists"`
	ID        string   `json:"id,omitempty"`
	Image     string   `json:"image,omitempty"`
	Status    string   `json:"status,omitempty"`
	Running   bool     `json:"running"`
	StartedAt string   `json:"started_at,omitempty"`
	Ports     []string `json:"ports,omitempty"`
	Managed   bool     `json:"managed"`
}

func statusRun(ctx context.Context, opts *StatusOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	p, err := opts.Provisioner(ctx, opts.Runtime)
	if err != nil {
		return err
	}

	st, err := p.Status(ctx)
	if err != nil {
		return err
	}

	if opts.JSON {
		return cmdutil.OutputJSON(ios, statusJSON(st))
	}

	if !st.Exists {
		fmt.Fprintf(ios.ErrOut, "%s Container '%s' does not exist. Run 'testdb up' to create it.\n", cs.InfoIcon(), st.Name)
		return nil
	}

	w := tabwriter.NewWriter(ios.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\t%s\n", st.Name)
	fmt.Fprintf(w, "STATUS\t%s\n", stateLabel(cs, st))
	fmt.Fprintf(w, "CONTAINER ID\t%s\n", truncateID(st.ID))
	fmt.Fprintf(w, "IMAGE\t%s\n", st.Image)
	if st.StartedAt != "" {
		fmt.Fprintf(w, "STARTED\t%s\n", st.StartedAt)
	}
	fmt.Fprintf(w, "PORTS\t%s\n", strings.Join(st.Ports, ", "))
	fmt.Fprintf(w, "MANAGED\t%t\n", st.Managed)
	if err := w.Flush(); err != nil {
		return err
	}

	if st.Running {
		fmt.Fprintf(ios.ErrOut, "\nConnect with: %s\n", cs.Cyan(p.Config.ConnectionHint()))
	}
	return nil
}

func stateLabel(cs *iostreams.ColorScheme, st docker.ContainerStatus) string {
	if st.Running {
		return cs.Green(st.Status)
	}
	return cs.Yellow(st.Status)
}

// truncateID shortens a Docker ID to 12 characters.
func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
