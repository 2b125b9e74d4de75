package config

import (
	"os"
	"path/filepath"
)

const (
	// StateHomeEnv overrides the testdb state directory
	StateHomeEnv = "TESTDB_STATE_HOME"
	// LogsSubdir is the subdirectory for log files
	LogsSubdir = "logs"
)

// StateDir returns the testdb state directory.
// It checks TESTDB_STATE_HOME first, then $XDG_STATE_HOME/testdb, then
// ~/.local/state/testdb.
func StateDir() (string, error) {
	if dir := os.Getenv(StateHomeEnv); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "testdb"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "testdb"), nil
}

// LogsDir returns the log directory under StateDir.
func LogsDir() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LogsSubdir), nil
}
