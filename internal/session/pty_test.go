package session_test

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testdb/internal/session"
)

// fakePsql is a tiny prompt loop run by /bin/sh under a real terminal.
const fakePsql = `sh -c 'printf "db=# "; while read l; do [ "$l" = q ] && exit 0; echo "got $l"; printf "db=# "; done'`

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pseudo-terminals are not supported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestPTYLauncher_RunsPromptLoop(t *testing.T) {
	requireShell(t)

	s, err := session.Open(context.Background(), session.PTYLauncher{Command: fakePsql}, session.Options{
		ReadyPattern:   "db=#",
		StartupTimeout: 5 * time.Second,
		QuitCommand:    "q",
	})
	require.NoError(t, err)

	got := session.RunBatch(s, []string{"hello", "world"}, session.Expectation{
		Ready:   "db=#",
		Error:   "ERROR",
		Timeout: 5 * time.Second,
	}, nil)
	require.NoError(t, s.Close())

	require.Len(t, got, 2)
	assert.Equal(t, session.OutcomeSuccess, got[0].Outcome)
	assert.Contains(t, got[0].Detail, "got hello")
	assert.Contains(t, got[1].Detail, "got world")
	assert.Equal(t, session.StateClosed, s.State())
}

func TestPTYLauncher_ProcessExitIsEndOfStream(t *testing.T) {
	requireShell(t)

	s, err := session.Open(context.Background(), session.PTYLauncher{Command: fakePsql}, session.Options{
		ReadyPattern:   "db=#",
		StartupTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Submit("q"))
	res, err := s.AwaitResponse([]string{"db=#"}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, session.ResultEOF, res.Kind)
}

func TestPTYLauncher_BadCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{name: "empty", command: ""},
		{name: "unterminated quote", command: `psql -c 'oops`},
		{name: "missing binary", command: "testdb-no-such-binary --flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.PTYLauncher{Command: tt.command}.Launch(context.Background())
			require.Error(t, err)
		})
	}
}
