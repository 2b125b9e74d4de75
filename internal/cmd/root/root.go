package root

import (
	"github.com/spf13/cobra"

	checkcmd "github.com/schmitthub/testdb/internal/cmd/check"
	configcmd "github.com/schmitthub/testdb/internal/cmd/config"
	downcmd "github.com/schmitthub/testdb/internal/cmd/down"
	sqlcmd "github.com/schmitthub/testdb/internal/cmd/sql"
	statuscmd "github.com/schmitthub/testdb/internal/cmd/status"
	upcmd "github.com/schmitthub/testdb/internal/cmd/up"
	versioncmd "github.com/schmitthub/testdb/internal/cmd/version"
	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/config"
	"github.com/schmitthub/testdb/internal/logger"
)

// NewCmdRoot creates the root command for the testdb CLI.
func NewCmdRoot(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "testdb",
		Short: "Provision a disposable PostgreSQL container for integration tests",
		Long: `testdb starts a throwaway PostgreSQL container and prepares it for
integration tests: it creates the application user and database and loads the
schema files through interactive psql sessions.

Quick start:
  testdb up       # pull, replace and set up the container
  testdb status   # show where it listens
  testdb check    # verify database ownership over the wire
  testdb down     # remove it

Settings are read from testdb.yaml in the current directory (or --config)
and can be overridden with TESTDB_<SECTION>_<KEY> environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initializeLogger(f)

			logger.Debug().
				Str("version", f.Version).
				Str("run_id", f.RunID).
				Bool("debug", f.Debug).
				Msg("testdb starting")

			return nil
		},
		Version: f.Version,
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&f.ConfigFile, "config", "c", "", "Path to the config `FILE` (default ./testdb.yaml)")
	cmd.PersistentFlags().BoolVarP(&f.Debug, "debug", "D", false, "Enable debug logging")

	cmd.SetVersionTemplate(versioncmd.Format(f.Version, f.Commit))
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return cmdutil.FlagErrorWrap(err)
	})

	cmd.AddCommand(upcmd.NewCmdUp(f, nil))
	cmd.AddCommand(downcmd.NewCmdDown(f, nil))
	cmd.AddCommand(statuscmd.NewCmdStatus(f, nil))
	cmd.AddCommand(sqlcmd.NewCmdSQL(f, nil))
	cmd.AddCommand(checkcmd.NewCmdCheck(f, nil))
	cmd.AddCommand(configcmd.NewCmdConfig(f))
	cmd.AddCommand(versioncmd.NewCmdVersion(f, f.Version, f.Commit))

	return cmd
}

// initializeLogger sets up the logger with file logging if possible.
// Falls back to console-only logging on any errors.
func initializeLogger(f *cmdutil.Factory) {
	if f.Config == nil {
		logger.Init(f.Debug)
		return
	}

	// Config errors surface in the command itself.
	cfg, err := f.Config()
	if err != nil {
		logger.Init(f.Debug)
		return
	}

	logsDir, err := config.LogsDir()
	if err != nil {
		logger.Init(f.Debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to get logs directory")
		return
	}

	if err := logger.InitWithFile(f.Debug, logsDir, cfg.LoggerConfig()); err != nil {
		logger.Init(f.Debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to initialize file writer")
	}
}
