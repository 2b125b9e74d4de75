package check

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testdb/internal/cmdutil"
	internalconfig "github.com/schmitthub/testdb/internal/config"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/logger"
	"github.com/schmitthub/testdb/internal/pgcheck"
)

// CheckOptions holds options for the config check command.
type CheckOptions struct {
	IOStreams  *iostreams.IOStreams
	WorkDir    string
	ConfigFile string
}

// NewCmdCheck creates the config check command.
func NewCmdCheck(f *cmdutil.Factory, runF func(context.Context, *CheckOptions) error) *cobra.Command {
	opts := &CheckOptions{
		IOStreams: f.IOStreams,
	}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate testdb.yaml configuration",
		Long: `Loads testdb.yaml (or the file given with --config), applies TESTDB_*
environment overrides and validates the result.

Checks for:
  - Required fields (container name, image, superuser, database user)
  - Valid ports, durations and SQL identifiers
  - Schema file paths relative to the bind mount`,
		Example: `  # Validate configuration in current directory
  testdb config check

  # Validate a specific file
  testdb --config ci/testdb.yaml config check`,
		Args: cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.WorkDir = f.WorkDir
			opts.ConfigFile = f.ConfigFile
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return checkRun(cmd.Context(), opts)
		},
	}

	return cmd
}

func checkRun(_ context.Context, opts *CheckOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	var loaderOpts []internalconfig.LoaderOption
	if opts.ConfigFile != "" {
		loaderOpts = append(loaderOpts, internalconfig.WithConfigFile(opts.ConfigFile))
	}
	loader := internalconfig.NewLoader(opts.WorkDir, loaderOpts...)
	logger.Debug().Str("path", loader.ConfigPath()).Msg("checking configuration")

	cfg, err := loader.Load()
	if err != nil {
		var multiErr *internalconfig.MultiValidationError
		switch {
		case internalconfig.IsConfigNotFound(err):
			fmt.Fprintf(ios.ErrOut, "%s %s\n", cs.FailureIcon(), err)
			cmdutil.PrintNextSteps(ios,
				"Check the --config path",
				"Or run without --config to use ./"+internalconfig.ConfigFileName+" and defaults",
			)
		case errors.As(err, &multiErr):
			fmt.Fprintf(ios.ErrOut, "%s Configuration validation failed\n\n", cs.FailureIcon())
			for _, e := range multiErr.ValidationErrors() {
				fmt.Fprintf(ios.ErrOut, "  - %s\n", e)
			}
			cmdutil.PrintNextSteps(ios,
				"Review the errors above",
				"Edit "+loader.ConfigPath()+" or the TESTDB_* environment to fix them",
				"Run 'testdb config check' again",
			)
		default:
			fmt.Fprintf(ios.ErrOut, "%s Failed to load configuration\n  %s\n", cs.FailureIcon(), err)
			cmdutil.PrintNextSteps(ios, "Check YAML syntax (indentation, colons, quotes)")
		}
		return cmdutil.SilentError
	}

	fmt.Fprintf(ios.ErrOut, "%s Configuration is valid!\n\n", cs.SuccessIcon())
	out := ios.Out
	fmt.Fprintf(out, "  Container:  %s (%s)\n", cfg.Container.Name, cfg.Container.Image)
	fmt.Fprintf(out, "  Port:       %d -> %d\n", cfg.Container.HostPort, internalconfig.PostgresPort)
	fmt.Fprintf(out, "  Mount:      %s -> %s\n", cfg.MountSourcePath(), cfg.Container.MountTarget)
	fmt.Fprintf(out, "  Database:   %s (owner %s)\n", cfg.DatabaseName(), cfg.Database.User)
	fmt.Fprintf(out, "  Runtime:    %s\n", cfg.Session.Runtime)
	fmt.Fprintf(out, "  DSN:        %s\n", pgcheck.Redact(pgcheck.DSN(cfg)))
	if len(cfg.Database.SchemaFiles) > 0 {
		fmt.Fprintf(out, "  Schema:     %d file(s)\n", len(cfg.Database.SchemaFiles))
	}

	return nil
}
