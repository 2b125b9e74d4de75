package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults valid", mutate: func(c *Config) {}},
		{name: "missing name", mutate: func(c *Config) { c.Container.Name = "" }, wantErr: "container.name: is required"},
		{name: "name with slash", mutate: func(c *Config) { c.Container.Name = "a/b" }, wantErr: "container.name"},
		{name: "port out of range", mutate: func(c *Config) { c.Container.HostPort = 70000 }, wantErr: "container.host_port"},
		{name: "relative mount target", mutate: func(c *Config) { c.Container.MountTarget = "tmp" }, wantErr: "must be an absolute path"},
		{name: "user with dash", mutate: func(c *Config) { c.Database.User = "app-user" }, wantErr: "database.user"},
		{name: "uppercase user", mutate: func(c *Config) { c.Database.User = "App" }, wantErr: "database.user: must be a lowercase SQL identifier"},
		{name: "uppercase database", mutate: func(c *Config) { c.Database.Name = "Orders" }, wantErr: "database.name: must be a lowercase SQL identifier"},
		{name: "database name from container", mutate: func(c *Config) { c.Container.Name = "db-1" }, wantErr: "database.name"},
		{name: "quote in password", mutate: func(c *Config) { c.Database.Password = "it's" }, wantErr: "single quotes"},
		{name: "empty schema file", mutate: func(c *Config) { c.Database.SchemaFiles = []string{" "} }, wantErr: "database.schema_files[0]"},
		{name: "unknown runtime", mutate: func(c *Config) { c.Session.Runtime = "podman" }, wantErr: "session.runtime"},
		{name: "zero timeout", mutate: func(c *Config) { c.Session.CommandTimeout = 0 }, wantErr: "session.command_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := NewValidator().Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMultiValidationError_Format(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Container.Image = ""
	cfg.Session.Host = ""

	err := NewValidator().Validate(cfg)
	require.Error(t, err)

	var multi *MultiValidationError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.ValidationErrors(), 2)
	assert.Contains(t, err.Error(), "found 2 configuration errors")
}

func TestStateDirs(t *testing.T) {
	t.Setenv(StateHomeEnv, "/state/testdb")

	dir, err := StateDir()
	require.NoError(t, err)
	assert.Equal(t, "/state/testdb", dir)

	logs, err := LogsDir()
	require.NoError(t, err)
	assert.Equal(t, "/state/testdb/logs", logs)

	t.Setenv(StateHomeEnv, "")
	t.Setenv("XDG_STATE_HOME", "/xdg")
	dir, err = StateDir()
	require.NoError(t, err)
	assert.Equal(t, "/xdg/testdb", dir)
}
