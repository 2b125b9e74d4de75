package factory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/config"
	"github.com/schmitthub/testdb/internal/docker"
	"github.com/schmitthub/testdb/internal/dockercli"
	"github.com/schmitthub/testdb/internal/iostreams"
	"github.com/schmitthub/testdb/internal/logger"
	"github.com/schmitthub/testdb/internal/pgcheck"
	"github.com/schmitthub/testdb/internal/provision"
)

// New creates a fully-wired Factory with lazy-initialized dependency closures.
// Called exactly once at the CLI entry point (internal/testdb/cmd.go).
// Tests should NOT import this package; they construct &cmdutil.Factory{} directly.
func New(version, commit string) *cmdutil.Factory {
	ios := iostreams.NewIOStreams()
	ios.Logger = logger.Global{}

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	f := &cmdutil.Factory{
		WorkDir:   wd,
		Version:   version,
		Commit:    commit,
		RunID:     uuid.NewString(),
		IOStreams: ios,
	}

	// Config
	var (
		configOnce sync.Once
		configData *config.Config
		configErr  error
	)
	f.Config = func() (*config.Config, error) {
		configOnce.Do(func() {
			var opts []config.LoaderOption
			if f.ConfigFile != "" {
				opts = append(opts, config.WithConfigFile(f.ConfigFile))
			}
			configData, configErr = config.NewLoader(f.WorkDir, opts...).Load()
		})
		return configData, configErr
	}

	// Runtime
	var (
		dockerOnce   sync.Once
		dockerClient *docker.Client
		dockerErr    error
	)
	f.Runtime = func(ctx context.Context, name string) (provision.Runtime, error) {
		if name == "" {
			cfg, err := f.Config()
			if err != nil {
				return nil, err
			}
			name = cfg.Session.Runtime
		}
		switch name {
		case config.RuntimeSDK:
			dockerOnce.Do(func() {
				dockerClient, dockerErr = docker.NewClient(ctx)
			})
			if dockerErr != nil {
				return nil, dockerErr
			}
			return dockerClient, nil
		case config.RuntimeCLI:
			return dockercli.New(), nil
		default:
			return nil, cmdutil.FlagErrorf("unknown runtime %q (want %s or %s)", name, config.RuntimeSDK, config.RuntimeCLI)
		}
	}
	f.CloseRuntime = func() {
		if dockerClient != nil {
			dockerClient.Close()
		}
	}

	// Provisioner
	f.Provisioner = func(ctx context.Context, runtime string) (*provision.Provisioner, error) {
		cfg, err := f.Config()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		rt, err := f.Runtime(ctx, runtime)
		if err != nil {
			return nil, err
		}
		logger.SetContext(cfg.Container.Name, f.RunID)
		return &provision.Provisioner{
			Config:     cfg,
			Runtime:    rt,
			IOStreams:  f.IOStreams,
			RunID:      f.RunID,
			Verify:     pgcheck.Verify,
			Transcript: logger.Writer("psql"),
		}, nil
	}

	return f
}
