package root

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/config"
	"github.com/schmitthub/testdb/internal/iostreams/iostreamstest"
	"github.com/schmitthub/testdb/internal/logger"
)

func TestNewCmdRoot(t *testing.T) {
	tio := iostreamstest.New()
	f := &cmdutil.Factory{Version: "1.0.0", Commit: "abc123", IOStreams: tio.IOStreams}
	cmd := NewCmdRoot(f)

	assert.Equal(t, "testdb", cmd.Use)
	assert.Equal(t, "1.0.0", cmd.Version)

	registered := map[string]bool{}
	for _, sub := range cmd.Commands() {
		registered[sub.Name()] = true
	}
	for _, name := range []string{"up", "down", "status", "sql", "check", "config", "version"} {
		assert.True(t, registered[name], "expected subcommand %q", name)
	}
}

func TestNewCmdRoot_GlobalFlags(t *testing.T) {
	f := &cmdutil.Factory{IOStreams: iostreamstest.New().IOStreams}
	cmd := NewCmdRoot(f)

	require.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
	require.NotNil(t, cmd.PersistentFlags().ShorthandLookup("D"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().ShorthandLookup("c"))
}

func TestNewCmdRoot_FlagsBindToFactory(t *testing.T) {
	t.Setenv(config.StateHomeEnv, t.TempDir())
	t.Cleanup(func() { _ = logger.CloseFileWriter() })

	tio := iostreamstest.New()
	f := &cmdutil.Factory{Version: "1.0.0", Commit: "abc", IOStreams: tio.IOStreams}
	cmd := NewCmdRoot(f)
	cmd.SetArgs([]string{"-D", "--config", "ci.yaml", "version"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())
	assert.True(t, f.Debug)
	assert.Equal(t, "ci.yaml", f.ConfigFile)
	assert.Equal(t, "testdb version 1.0.0 (abc)\n", tio.OutBuf.String())
}

func TestNewCmdRoot_UnknownFlagIsFlagError(t *testing.T) {
	f := &cmdutil.Factory{IOStreams: iostreamstest.New().IOStreams}
	cmd := NewCmdRoot(f)
	cmd.SetArgs([]string{"version", "--bogus"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	var flagErr *cmdutil.FlagError
	assert.ErrorAs(t, err, &flagErr)
}
