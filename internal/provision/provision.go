// Package provision orchestrates a disposable PostgreSQL container: pull,
// replace, wait, then set up roles, the database and its schema through
// interactive psql sessions.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/schmitthub/testdb/internal/config"
	"github.com/schmitthub/testdb/internal/docker"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/pgcheck"
	"github.com/schmitthub/testdb/internal/session"
)

// Runtime runs the database container. docker.Client and dockercli.Runner
// implement it.
type Runtime interface {
	PullImage(ctx context.Context, ref string) error
	RemoveContainer(ctx context.Context, name string) (bool, error)
	RunContainer(ctx context.Context, spec docker.ContainerSpec) (string, error)
	InspectContainer(ctx context.Context, name string) (docker.ContainerStatus, error)
	Launcher(container string, cmd []string) session.Launcher
}

// VerifyFunc checks the provisioned database. pgcheck.Verify in production.
type VerifyFunc func(ctx context.Context, dsn, db, owner string) (*pgcheck.Report, error)

// UpOptions tunes a provisioning run.
type UpOptions struct {
	// SkipPull uses the local image as is.
	SkipPull bool
	// Verify connects over the wire protocol after setup.
	Verify bool
}

// Provisioner runs the provisioning steps for one configuration.
type Provisioner struct {
	Config    *config.Config
	Runtime   Runtime
	IOStreams *iostreams.IOStreams

	// RunID labels the container and log entries of this run.
	RunID string
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Verify defaults to pgcheck.Verify.
	Verify VerifyFunc
	// Transcript receives raw session output when set.
	Transcript io.Writer
}

// Summary reports what Up did.
type Summary struct {
	ContainerID string
	Removed     bool
	Setup       []session.Disposition
	Schema      []session.Disposition
	Report      *pgcheck.Report
}

// Failed returns the number of commands that did not succeed.
func (s *Summary) Failed() int {
	n := 0
	for _, ds := range [][]session.Disposition{s.Setup, s.Schema} {
		for _, d := range ds {
			if d.Outcome != session.OutcomeSuccess {
				n++
			}
		}
	}
	return n
}

// Sleep waits for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provisioner) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func (p *Provisioner) log() iostreams.Logger {
	if p.IOStreams.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return p.IOStreams.Logger
}

// Up provisions the container and database. Individual command failures are
// reported and counted but never returned; only pull, run, session startup
// and verification failures are.
func (p *Provisioner) Up(ctx context.Context, opts UpOptions) (*Summary, error) {
	cfg := p.Config
	ios := p.IOStreams
	cs := ios.ColorScheme()
	name := cfg.Container.Name
	sum := &Summary{}

	if !opts.SkipPull {
		fmt.Fprintf(ios.Out, "Pulling the latest '%s' image...\n", cfg.Container.Image)
		if err := p.Runtime.PullImage(ctx, cfg.Container.Image); err != nil {
			return sum, err
		}
		fmt.Fprintf(ios.Out, "%s Image pulled successfully.\n\n", cs.SuccessIcon())
	}

	fmt.Fprintf(ios.Out, "Removing existing container named '%s' (if any)...\n", name)
	removed, err := p.Runtime.RemoveContainer(ctx, name)
	switch {
	case err != nil:
		p.log().Warn().Err(err).Str("container", name).Msg("removing existing container")
		fmt.Fprintf(ios.Out, "%s Could not remove container '%s'. Proceeding.\n\n", cs.WarningIcon(), name)
	case removed:
		fmt.Fprintf(ios.Out, "Removed old container '%s'.\n\n", name)
	default:
		fmt.Fprintf(ios.Out, "No existing container '%s' to remove. Proceeding.\n\n", name)
	}
	sum.Removed = removed

	fmt.Fprintf(ios.Out, "Starting new container '%s' on port %d ...\n", name, cfg.Container.HostPort)
	id, err := p.Runtime.RunContainer(ctx, p.ContainerSpec())
	if err != nil {
		return sum, err
	}
	sum.ContainerID = id
	fmt.Fprintf(ios.Out, "%s Container started.\n\n", cs.SuccessIcon())

	fmt.Fprintf(ios.Out, "Waiting %s for the database to initialize...\n", iostreams.FormatDuration(cfg.Container.StartupWait))
	if err := p.sleep(ctx, cfg.Container.StartupWait); err != nil {
		return sum, err
	}
	fmt.Fprint(ios.Out, "Proceeding...\n\n")

	fmt.Fprintln(ios.Out, "Entering container to run psql commands...")
	sum.Setup, err = p.RunStatements(ctx, cfg.Container.Superuser, config.MaintenanceDatabase, SetupStatements(cfg), cfg.Session.CommandTimeout)
	if err != nil {
		return sum, err
	}
	fmt.Fprint(ios.Out, "Commands executed. Exiting psql.\n\n")

	sum.Schema, err = p.RunStatements(ctx, cfg.Database.User, cfg.DatabaseName(), SchemaStatements(cfg), cfg.Session.SchemaTimeout)
	if err != nil {
		return sum, err
	}
	fmt.Fprint(ios.Out, "All SQL files have been executed.\n\n")

	if opts.Verify {
		rep, err := p.verify(ctx)
		if err != nil {
			return sum, err
		}
		sum.Report = rep
		fmt.Fprintf(ios.Out, "%s Database '%s' is owned by '%s'.\n\n", cs.SuccessIcon(), cfg.DatabaseName(), rep.Owner)
	}

	fmt.Fprint(ios.Out, "Setup completed.\n\n")
	if n := sum.Failed(); n > 0 {
		fmt.Fprintf(ios.Out, "%s %d command(s) did not succeed; see above.\n\n", cs.WarningIcon(), n)
	}
	fmt.Fprintln(ios.Out, "You can now connect using something like:")
	fmt.Fprintf(ios.Out, "  %s\n", cs.Cyan(cfg.ConnectionHint()))
	fmt.Fprint(ios.Out, "using the superuser password you specified.\n\n")

	return sum, nil
}

// ContainerSpec returns the container Up runs.
func (p *Provisioner) ContainerSpec() docker.ContainerSpec {
	cfg := p.Config
	return docker.ContainerSpec{
		Name:   cfg.Container.Name,
		Image:  cfg.Container.Image,
		Env:    []string{"POSTGRES_PASSWORD=" + cfg.Container.SuperuserPassword},
		Ports:  []string{strconv.Itoa(cfg.Container.HostPort) + ":" + strconv.Itoa(config.PostgresPort)},
		Mounts: []docker.BindMount{{Source: cfg.MountSourcePath(), Target: cfg.Container.MountTarget}},
		Labels: docker.ContainerLabels(cfg.Container.Name, p.RunID, cfg.Container.Labels),
	}
}

// SetupStatements returns the superuser batch: role, database, ownership.
func SetupStatements(cfg *config.Config) []string {
	db := cfg.DatabaseName()
	user := cfg.Database.User
	return []string{
		fmt.Sprintf("CREATE USER %s WITH PASSWORD '%s';", user, cfg.Database.Password),
		fmt.Sprintf("CREATE DATABASE %s;", db),
		fmt.Sprintf("ALTER DATABASE %s OWNER TO %s;", db, user),
	}
}

// SchemaStatements returns one psql include per schema file.
func SchemaStatements(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Database.SchemaFiles))
	for _, f := range cfg.Database.SchemaFiles {
		out = append(out, `\i `+cfg.SchemaPath(f))
	}
	return out
}

// RunStatements opens a psql session as role connected to db inside the
// container, runs statements as a best-effort batch and prints one line per
// disposition. The session is closed even when commands fail. Only a session
// that never becomes ready is an error.
func (p *Provisioner) RunStatements(ctx context.Context, role, db string, statements []string, timeout time.Duration) ([]session.Disposition, error) {
	cfg := p.Config
	prompt := cfg.Prompt(role, db)

	s, err := session.Open(ctx, p.Runtime.Launcher(cfg.Container.Name, cfg.PsqlArgs(role, db)), session.Options{
		ReadyPattern:   prompt,
		StartupTimeout: cfg.Session.StartupTimeout,
		QuitCommand:    cfg.Session.QuitCommand,
		Transcript:     p.Transcript,
		Logger:         p.log(),
	})
	if err != nil {
		if errors.Is(err, session.ErrStartupTimeout) {
			return nil, fmt.Errorf("psql as %s did not become ready (%s): %w", role, cfg.LaunchCommand(role, db), err)
		}
		return nil, fmt.Errorf("opening psql session as %s: %w", role, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			p.log().Debug().Err(err).Str("role", role).Msg("closing session")
		}
	}()

	got := session.RunBatch(s, statements, session.Expectation{
		Ready:   prompt,
		Error:   cfg.Session.ErrorMarker,
		Timeout: timeout,
	}, p.log())

	PrintDispositions(p.IOStreams, got)
	return got, nil
}

// PrintDispositions writes one line per command outcome.
func PrintDispositions(ios *iostreams.IOStreams, ds []session.Disposition) {
	cs := ios.ColorScheme()
	for _, d := range ds {
		switch d.Outcome {
		case session.OutcomeSuccess:
			fmt.Fprintf(ios.Out, "  %s %s\n", cs.SuccessIcon(), d.Command)
		case session.OutcomeCommandError:
			fmt.Fprintf(ios.Out, "  %s Error running command: %s\n", cs.FailureIcon(), d.Command)
			fmt.Fprintf(ios.Out, "    Detail: %s\n", cs.Muted(d.Detail))
		default:
			fmt.Fprintf(ios.Out, "  %s Unexpected response or no response for command: %s (%s)\n", cs.WarningIcon(), d.Command, d.Detail)
		}
	}
}

func (p *Provisioner) verify(ctx context.Context) (*pgcheck.Report, error) {
	fn := p.Verify
	if fn == nil {
		fn = pgcheck.Verify
	}
	cfg := p.Config
	return fn(ctx, pgcheck.DSN(cfg), cfg.DatabaseName(), cfg.Database.User)
}

// Check verifies a running instance without provisioning it.
func (p *Provisioner) Check(ctx context.Context) (*pgcheck.Report, error) {
	return p.verify(ctx)
}

// Down removes the container. It reports whether one existed.
func (p *Provisioner) Down(ctx context.Context) (bool, error) {
	return p.Runtime.RemoveContainer(ctx, p.Config.Container.Name)
}

// Status inspects the container.
func (p *Provisioner) Status(ctx context.Context) (docker.ContainerStatus, error) {
	return p.Runtime.InspectContainer(ctx, p.Config.Container.Name)
}
