package cmdutil

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/schmitthub/testdb/internal/config"
)

// enumValue is a string flag restricted to a fixed set of values.
type enumValue struct {
	target  *string
	options []string
}

// String returns the current value.
func (e *enumValue) String() string {
	return *e.target
}

// Set accepts value when it is one of the options.
func (e *enumValue) Set(value string) error {
	for _, o := range e.options {
		if value == o {
			*e.target = value
			return nil
		}
	}
	return fmt.Errorf("valid values are {%s}", strings.Join(e.options, "|"))
}

// Type returns the type shown in help output.
func (*enumValue) Type() string {
	return "string"
}

// StringEnumFlag registers a string flag that only accepts options.
func StringEnumFlag(fs *pflag.FlagSet, p *string, name, shorthand, defaultValue string, options []string, usage string) *pflag.Flag {
	*p = defaultValue
	val := &enumValue{target: p, options: options}
	return fs.VarPF(val, name, shorthand, fmt.Sprintf("%s: {%s}", usage, strings.Join(options, "|")))
}

// RuntimeFlag registers --runtime. An empty value means session.runtime from
// the config.
func RuntimeFlag(fs *pflag.FlagSet, p *string) *pflag.Flag {
	return StringEnumFlag(fs, p, "runtime", "", "", []string{config.RuntimeSDK, config.RuntimeCLI}, "Container runtime (default from config)")
}
