// Package config defines the testdb configuration and how it is loaded.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/schmitthub/testdb/internal/logger"
)

// Runtime names accepted by session.runtime.
const (
	RuntimeSDK = "sdk"
	RuntimeCLI = "cli"
)

// PostgresPort is the port the server listens on inside the container.
const PostgresPort = 5432

// MaintenanceDatabase exists on every fresh server; the superuser session
// connects to it.
const MaintenanceDatabase = "postgres"

// Config is the root configuration for a provisioning run.
type Config struct {
	Container ContainerConfig `yaml:"container" mapstructure:"container"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`

	// Dir is the directory relative paths resolve against: the directory of
	// the loaded config file, or the working directory when none was found.
	Dir string `yaml:"-" mapstructure:"-"`
}

// ContainerConfig describes the database container.
type ContainerConfig struct {
	Name              string            `yaml:"name" mapstructure:"name"`
	Image             string            `yaml:"image" mapstructure:"image"`
	HostPort          int               `yaml:"host_port" mapstructure:"host_port"`
	Superuser         string            `yaml:"superuser" mapstructure:"superuser"`
	SuperuserPassword string            `yaml:"superuser_password" mapstructure:"superuser_password"`
	MountSource       string            `yaml:"mount_source" mapstructure:"mount_source"`
	MountTarget       string            `yaml:"mount_target" mapstructure:"mount_target"`
	StartupWait       time.Duration     `yaml:"startup_wait" mapstructure:"startup_wait"`
	Labels            map[string]string `yaml:"labels,omitempty" mapstructure:"labels"`
}

// DatabaseConfig describes the application database created inside the container.
type DatabaseConfig struct {
	// Name defaults to the container name when empty.
	Name        string   `yaml:"name" mapstructure:"name"`
	User        string   `yaml:"user" mapstructure:"user"`
	Password    string   `yaml:"password" mapstructure:"password"`
	SchemaFiles []string `yaml:"schema_files" mapstructure:"schema_files"`
}

// SessionConfig controls the interactive psql sessions.
type SessionConfig struct {
	Runtime        string        `yaml:"runtime" mapstructure:"runtime"`
	Host           string        `yaml:"host" mapstructure:"host"`
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
	SchemaTimeout  time.Duration `yaml:"schema_timeout" mapstructure:"schema_timeout"`
	ErrorMarker    string        `yaml:"error_marker" mapstructure:"error_marker"`
	QuitCommand    string        `yaml:"quit_command" mapstructure:"quit_command"`
}

// LoggingConfig configures the rotating log file.
type LoggingConfig struct {
	FileEnabled *bool `yaml:"file_enabled,omitempty" mapstructure:"file_enabled"`
	MaxSizeMB   int   `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxAgeDays  int   `yaml:"max_age_days" mapstructure:"max_age_days"`
	MaxBackups  int   `yaml:"max_backups" mapstructure:"max_backups"`
}

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() *Config {
	fileEnabled := true
	return &Config{
		Container: ContainerConfig{
			Name:              "muproc",
			Image:             "postgres",
			HostPort:          1402,
			Superuser:         "postgres",
			SuperuserPassword: "H0nd@666",
			MountTarget:       "/tmp",
			StartupWait:       10 * time.Second,
		},
		Database: DatabaseConfig{
			User:        "muproc",
			Password:    "muproc",
			SchemaFiles: []string{"database-create.sql"},
		},
		Session: SessionConfig{
			Runtime:        RuntimeSDK,
			Host:           "localhost",
			StartupTimeout: 5 * time.Second,
			CommandTimeout: 5 * time.Second,
			SchemaTimeout:  10 * time.Second,
			ErrorMarker:    "ERROR",
			QuitCommand:    `\q`,
		},
		Logging: LoggingConfig{
			FileEnabled: &fileEnabled,
			MaxSizeMB:   50,
			MaxAgeDays:  7,
			MaxBackups:  3,
		},
	}
}

// DatabaseName returns the application database name.
func (c *Config) DatabaseName() string {
	if c.Database.Name != "" {
		return c.Database.Name
	}
	return c.Container.Name
}

// Prompt returns psql's default ready prompt for a session as role connected
// to db: the database name followed by "=#" for the superuser and "=>" for
// everyone else.
func (c *Config) Prompt(role, db string) string {
	if role == c.Container.Superuser {
		return db + "=#"
	}
	return db + "=>"
}

// SessionDatabase returns the database a psql session as role connects to:
// the maintenance database for the superuser, the application database
// otherwise.
func (c *Config) SessionDatabase(role string) string {
	if role == c.Container.Superuser {
		return MaintenanceDatabase
	}
	return c.DatabaseName()
}

// MountSourcePath returns the absolute host directory bind-mounted into the
// container. An empty mount_source means Dir.
func (c *Config) MountSourcePath() string {
	src := c.Container.MountSource
	if src == "" {
		src = c.Dir
	}
	if src == "" || filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(c.Dir, src)
}

// PsqlArgs returns the client invocation used inside the container for role
// connected to db.
func (c *Config) PsqlArgs(role, db string) []string {
	return []string{"psql", "-h", c.Session.Host, "-U", role, "-d", db}
}

// LaunchCommand returns the host command line that attaches an interactive
// psql session, e.g. "docker exec -it muproc psql -h localhost -U postgres -d postgres".
func (c *Config) LaunchCommand(role, db string) string {
	return fmt.Sprintf("docker exec -it %s %s", c.Container.Name, strings.Join(c.PsqlArgs(role, db), " "))
}

// SchemaPath returns the in-container path psql loads file from.
func (c *Config) SchemaPath(file string) string {
	return filepath.ToSlash(filepath.Join(c.Container.MountTarget, file))
}

// ConnectionHint is the command printed after a successful setup.
func (c *Config) ConnectionHint() string {
	return fmt.Sprintf("psql -h localhost -p %d -U %s", c.Container.HostPort, c.Container.Superuser)
}

// LoggerConfig converts the logging section for logger.InitWithFile.
func (c *Config) LoggerConfig() *logger.LoggingConfig {
	return &logger.LoggingConfig{
		FileEnabled: c.Logging.FileEnabled,
		MaxSizeMB:   c.Logging.MaxSizeMB,
		MaxAgeDays:  c.Logging.MaxAgeDays,
		MaxBackups:  c.Logging.MaxBackups,
	}
}
