package config

import (
	"github.com/spf13/cobra"

	"github.com/schmitthub/testdb/internal/cmd/config/check"
	"github.com/schmitthub/testdb/internal/cmdutil"
)

// NewCmdConfig creates the config command.
func NewCmdConfig(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
		Long:  `Commands for inspecting and validating testdb configuration.`,
	}

	cmd.AddCommand(check.NewCmdCheck(f, nil))

	return cmd
}
