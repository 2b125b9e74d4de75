package factory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/config"
	"github.com/schmitthub/testdb/internal/dockercli"
)

func TestNew(t *testing.T) {
	f := New("1.0.0", "abc123")

	assert.Equal(t, "1.0.0", f.Version)
	assert.Equal(t, "abc123", f.Commit)
	assert.NotNil(t, f.IOStreams)
	assert.NotNil(t, f.IOStreams.Logger)
	assert.NotEmpty(t, f.WorkDir)
	assert.Len(t, f.RunID, 36)
}

func TestFactory_ConfigFromWorkDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("container:\n  name: orders\n"), 0o644))

	f := New("1.0.0", "abc")
	f.WorkDir = dir

	cfg, err := f.Config()
	require.NoError(t, err)
	assert.Equal(t, "orders", cfg.Container.Name)

	again, err := f.Config()
	require.NoError(t, err)
	assert.Same(t, cfg, again)
}

func TestFactory_ExplicitConfigMissing(t *testing.T) {
	f := New("1.0.0", "abc")
	f.WorkDir = t.TempDir()
	f.ConfigFile = "nope.yaml"

	_, err := f.Config()
	assert.True(t, config.IsConfigNotFound(err))
}

func TestFactory_Runtime(t *testing.T) {
	f := New("1.0.0", "abc")
	f.WorkDir = t.TempDir()

	rt, err := f.Runtime(context.Background(), config.RuntimeCLI)
	require.NoError(t, err)
	assert.IsType(t, &dockercli.Runner{}, rt)

	_, err = f.Runtime(context.Background(), "podman")
	var flagErr *cmdutil.FlagError
	require.ErrorAs(t, err, &flagErr)
	assert.Contains(t, err.Error(), "unknown runtime")
}

func TestFactory_ProvisionerCLI(t *testing.T) {
	f := New("1.0.0", "abc")
	f.WorkDir = t.TempDir()

	p, err := f.Provisioner(context.Background(), config.RuntimeCLI)
	require.NoError(t, err)
	assert.Equal(t, "muproc", p.Config.Container.Name)
	assert.Equal(t, f.RunID, p.RunID)
	assert.NotNil(t, p.Verify)
	assert.Same(t, f.IOStreams, p.IOStreams)
}
