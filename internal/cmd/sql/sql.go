// Package sql provides the sql command.
package sql

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/provision"
	"github.com/schmitthub/testdb/internal/session"
)

// SQLOptions holds options for the sql command.
type SQLOptions struct {
	IOStreams   *iostreams.IOStreams
	Provisioner func(ctx context.Context, runtime string) (*provision.Provisioner, error)

	Runtime    string
	User       string
	Database   string
	File       string
	Timeout    time.Duration
	Statements []string
}

// NewCmdSQL creates the sql command.
func NewCmdSQL(f *cmdutil.Factory, runF func(context.Context, *SQLOptions) error) *cobra.Command {
	opts := &SQLOptions{
		IOStreams:   f.IOStreams,
		Provisioner: f.Provisioner,
	}

	cmd := &cobra.Command{
		Use:   "sql [STATEMENT...]",
		Short: "Run statements through an interactive psql session",
		Long: `Opens psql inside the running container and submits each statement in
order, reporting one outcome per statement. A failed statement does not stop
the ones after it.

Statements come from the arguments, or one per line from --file. Blank lines
and lines starting with "--" are skipped.`,
		Example: `  # Run as the superuser
  testdb sql "CREATE EXTENSION IF NOT EXISTS pgcrypto;"

  # Run as the application user in the application database
  testdb sql --user muproc "SELECT count(*) FROM accounts;"

  # Connect to a specific database
  testdb sql --database template1 "SELECT 1;"

  # Run statements from a file
  testdb sql --file seed.sql`,
		Args: cmdutil.StatementsOrFile("file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Statements = args
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return sqlRun(cmd.Context(), opts)
		},
	}

	cmdutil.RuntimeFlag(cmd.Flags(), &opts.Runtime)
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "Role to connect as (default: superuser)")
	cmd.Flags().StringVarP(&opts.Database, "database", "d", "", "Database to connect to (default: postgres for the superuser, the application database otherwise)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read statements from `PATH`, one per line")
	cmd.Flags().DurationVarP(&opts.Timeout, "timeout", "t", 0, "Wait per statement (default: session.command_timeout)")

	return cmd
}

func sqlRun(ctx context.Context, opts *SQLOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	statements := opts.Statements
	if opts.File != "" {
		var err error
		statements, err = ReadStatements(opts.File)
		if err != nil {
			return err
		}
		if len(statements) == 0 {
			return cmdutil.FlagErrorf("no statements in %s", opts.File)
		}
	}

	p, err := opts.Provisioner(ctx, opts.Runtime)
	if err != nil {
		return err
	}

	role := opts.User
	if role == "" {
		role = p.Config.Container.Superuser
	}
	db := opts.Database
	if db == "" {
		db = p.Config.SessionDatabase(role)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.Config.Session.CommandTimeout
	}

	got, err := p.RunStatements(ctx, role, db, statements, timeout)
	if err != nil {
		return err
	}

	failed := 0
	for _, d := range got {
		if d.Outcome != session.OutcomeSuccess {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(ios.ErrOut, "%s %d of %d statement(s) did not succeed\n", cs.WarningIcon(), failed, len(got))
	}
	return nil
}

// ReadStatements returns the non-blank, non-comment lines of path.
func ReadStatements(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading statements: %w", err)
	}
	defer fh.Close()

	var out []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading statements: %w", err)
	}
	return out, nil
}
