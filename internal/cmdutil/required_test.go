package cmdutil

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoArgs(t *testing.T) {
	root := &cobra.Command{Use: "testdb"}
	cmd := &cobra.Command{Use: "down", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(cmd)

	require.NoError(t, NoArgs(cmd, nil))

	err := NoArgs(cmd, []string{"extra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "testdb: 'testdb down' accepts no arguments")

	err = NoArgs(root, []string{"bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: testdb bogus")
}

func TestRequiresMinArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "sql"}
	v := RequiresMinArgs(2)

	assert.NoError(t, v(cmd, []string{"a", "b"}))
	err := v(cmd, []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 2 arguments")
}

func TestStatementsOrFile(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		args       []string
		wantErrMsg string
	}{
		{name: "statements", args: []string{"SELECT 1;"}},
		{name: "file", file: "seed.sql"},
		{name: "both", file: "seed.sql", args: []string{"SELECT 1;"}, wantErrMsg: "mutually exclusive"},
		{name: "neither", wantErrMsg: "requires at least 1 statement argument or --file flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "sql"}
			cmd.Flags().String("file", "", "")
			require.NoError(t, cmd.Flags().Set("file", tt.file))

			err := StatementsOrFile("file")(cmd, tt.args)
			if tt.wantErrMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErrMsg)
		})
	}
}
