package config

import (
	"fmt"
	"path"
	"strings"
)

// Validator validates a Config for correctness
type Validator struct {
	errors []error
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the configuration for errors and returns all found issues
func (v *Validator) Validate(cfg *Config) error {
	v.errors = nil

	v.validateContainer(cfg)
	v.validateDatabase(cfg)
	v.validateSession(cfg)

	if len(v.errors) > 0 {
		return &MultiValidationError{Errors: v.errors}
	}
	return nil
}

func (v *Validator) addError(field, message string, value any) {
	v.errors = append(v.errors, &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

func (v *Validator) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.addError(field, "is required", nil)
		return false
	}
	return true
}

func (v *Validator) validateContainer(cfg *Config) {
	c := cfg.Container
	if v.required("container.name", c.Name) && strings.ContainsAny(c.Name, " /:") {
		v.addError("container.name", "must not contain spaces, slashes or colons", c.Name)
	}
	v.required("container.image", c.Image)
	v.required("container.superuser", c.Superuser)

	if c.HostPort < 1 || c.HostPort > 65535 {
		v.addError("container.host_port", "must be between 1 and 65535", c.HostPort)
	}

	if v.required("container.mount_target", c.MountTarget) && !path.IsAbs(c.MountTarget) {
		v.addError("container.mount_target", "must be an absolute path", c.MountTarget)
	}

	if c.StartupWait < 0 {
		v.addError("container.startup_wait", "must not be negative", c.StartupWait)
	}
}

func (v *Validator) validateDatabase(cfg *Config) {
	d := cfg.Database
	if v.required("database.user", d.User) && !isIdentifier(d.User) {
		v.addError("database.user", "must be a lowercase SQL identifier", d.User)
	}
	if name := cfg.DatabaseName(); name != "" && !isIdentifier(name) {
		v.addError("database.name", "must be a lowercase SQL identifier", name)
	}
	if strings.Contains(d.Password, "'") {
		v.addError("database.password", "must not contain single quotes", nil)
	}
	for i, f := range d.SchemaFiles {
		if strings.TrimSpace(f) == "" {
			v.addError(fmt.Sprintf("database.schema_files[%d]", i), "must not be empty", nil)
		}
	}
}

func (v *Validator) validateSession(cfg *Config) {
	s := cfg.Session
	switch s.Runtime {
	case RuntimeSDK, RuntimeCLI:
	default:
		v.addError("session.runtime", fmt.Sprintf("must be %q or %q", RuntimeSDK, RuntimeCLI), s.Runtime)
	}
	v.required("session.host", s.Host)
	v.required("session.error_marker", s.ErrorMarker)
	v.required("session.quit_command", s.QuitCommand)

	if s.StartupTimeout <= 0 {
		v.addError("session.startup_timeout", "must be positive", s.StartupTimeout)
	}
	if s.CommandTimeout <= 0 {
		v.addError("session.command_timeout", "must be positive", s.CommandTimeout)
	}
	if s.SchemaTimeout <= 0 {
		v.addError("session.schema_timeout", "must be positive", s.SchemaTimeout)
	}
}

// isIdentifier reports whether s can be used unquoted as a role or database
// name. Unquoted names fold to lowercase in SQL while psql -U/-d match
// exactly, so uppercase letters are rejected.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case i > 0 && (r >= '0' && r <= '9' || r == '$'):
		default:
			return false
		}
	}
	return true
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid %s: %s (got %v)", e.Field, e.Message, e.Value)
	}
	return "invalid " + e.Field + ": " + e.Message
}

// MultiValidationError holds multiple validation errors
type MultiValidationError struct {
	Errors []error
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d configuration errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidationErrors returns the individual errors
func (e *MultiValidationError) ValidationErrors() []error {
	return e.Errors
}
