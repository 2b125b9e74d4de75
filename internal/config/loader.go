package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the default configuration file name
	ConfigFileName = "testdb.yaml"
	// EnvPrefix prefixes environment overrides, e.g. TESTDB_CONTAINER_HOST_PORT
	EnvPrefix = "TESTDB"
)

// Loader handles loading and parsing of testdb configuration
type Loader struct {
	workDir    string
	configFile string
	viper      *viper.Viper
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithConfigFile makes the loader read path instead of searching workDir.
// A missing explicit file is an error.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) {
		l.configFile = path
	}
}

// NewLoader creates a new configuration loader for the given working directory
func NewLoader(workDir string, opts ...LoaderOption) *Loader {
	l := &Loader{
		workDir: workDir,
		viper:   viper.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ConfigPath returns the config file the loader reads.
func (l *Loader) ConfigPath() string {
	if l.configFile != "" {
		if filepath.IsAbs(l.configFile) {
			return l.configFile
		}
		return filepath.Join(l.workDir, l.configFile)
	}
	return filepath.Join(l.workDir, ConfigFileName)
}

// Load resolves the configuration from defaults, the config file when
// present and TESTDB_* environment variables, then validates it.
func (l *Loader) Load() (*Config, error) {
	configPath := l.ConfigPath()

	fileFound := true
	if _, err := os.Stat(configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if l.configFile != "" {
			return nil, &ConfigNotFoundError{Path: configPath}
		}
		fileFound = false
	}

	l.setDefaults()
	l.viper.SetEnvPrefix(EnvPrefix)
	l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.viper.AutomaticEnv()

	dir := l.workDir
	if fileFound {
		l.viper.SetConfigFile(configPath)
		l.viper.SetConfigType("yaml")
		if err := l.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		dir = filepath.Dir(configPath)
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Dir = dir

	if fileFound {
		// Label keys are case-sensitive; ignore re-read failures and keep
		// viper's lowercased keys.
		_ = fixLabelKeyCase(&cfg, configPath)
	}

	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()
	v := l.viper

	v.SetDefault("container.name", d.Container.Name)
	v.SetDefault("container.image", d.Container.Image)
	v.SetDefault("container.host_port", d.Container.HostPort)
	v.SetDefault("container.superuser", d.Container.Superuser)
	v.SetDefault("container.superuser_password", d.Container.SuperuserPassword)
	v.SetDefault("container.mount_source", d.Container.MountSource)
	v.SetDefault("container.mount_target", d.Container.MountTarget)
	v.SetDefault("container.startup_wait", d.Container.StartupWait)

	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.schema_files", d.Database.SchemaFiles)

	v.SetDefault("session.runtime", d.Session.Runtime)
	v.SetDefault("session.host", d.Session.Host)
	v.SetDefault("session.startup_timeout", d.Session.StartupTimeout)
	v.SetDefault("session.command_timeout", d.Session.CommandTimeout)
	v.SetDefault("session.schema_timeout", d.Session.SchemaTimeout)
	v.SetDefault("session.error_marker", d.Session.ErrorMarker)
	v.SetDefault("session.quit_command", d.Session.QuitCommand)

	v.SetDefault("logging.file_enabled", *d.Logging.FileEnabled)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
}

// fixLabelKeyCase re-reads the YAML to preserve original case for label keys.
// Viper/mapstructure lowercases all map keys.
func fixLabelKeyCase(cfg *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var raw struct {
		Container struct {
			Labels map[string]string `yaml:"labels"`
		} `yaml:"container"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw.Container.Labels) > 0 {
		cfg.Container.Labels = raw.Container.Labels
	}
	return nil
}

// ConfigNotFoundError is returned when an explicitly requested config file doesn't exist
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s", e.Path)
}

// IsConfigNotFound returns true if the error is a ConfigNotFoundError
func IsConfigNotFound(err error) bool {
	var notFound *ConfigNotFoundError
	return errors.As(err, &notFound)
}
