// Package iostreams provides the console streams used by testdb commands.
package iostreams

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IOStreams provides access to standard input/output/error streams.
// It follows the GitHub CLI pattern for testable I/O.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// Logger receives diagnostic events; console output goes through Out/ErrOut.
	Logger Logger

	// isOutputTTY caches whether stdout is a terminal.
	// 0 = unchecked, 1 = false, 2 = true
	isOutputTTY int

	// colorOverride forces color output.
	// 0 = auto (detect from TTY), 1 = disabled, 2 = enabled
	colorOverride int
}

const (
	triUnset = iota
	triFalse
	triTrue
)

// NewIOStreams creates an IOStreams connected to standard streams.
func NewIOStreams() *IOStreams {
	return &IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

// IsOutputTTY returns true if stdout is a terminal.
func (s *IOStreams) IsOutputTTY() bool {
	if s.isOutputTTY == triUnset {
		s.isOutputTTY = triFalse
		if f, ok := s.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			s.isOutputTTY = triTrue
		}
	}
	return s.isOutputTTY == triTrue
}

// SetOutputTTY overrides TTY detection for stdout.
func (s *IOStreams) SetOutputTTY(isTTY bool) {
	s.isOutputTTY = toTri(isTTY)
}

// ColorEnabled reports whether color output is enabled.
// Auto mode enables color on a terminal unless NO_COLOR is set.
func (s *IOStreams) ColorEnabled() bool {
	if s.colorOverride == triUnset {
		return s.IsOutputTTY() && os.Getenv("NO_COLOR") == ""
	}
	return s.colorOverride == triTrue
}

// SetColorEnabled forces color output on or off.
func (s *IOStreams) SetColorEnabled(enabled bool) {
	s.colorOverride = toTri(enabled)
}

// ColorScheme returns a color scheme matching the current color setting.
func (s *IOStreams) ColorScheme() *ColorScheme {
	return NewColorScheme(s.ColorEnabled())
}

func toTri(b bool) int {
	if b {
		return triTrue
	}
	return triFalse
}
