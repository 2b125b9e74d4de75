package iostreams

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIOStreams_NonFileOutputIsNotTTY(t *testing.T) {
	ios := &IOStreams{Out: &bytes.Buffer{}}

	assert.False(t, ios.IsOutputTTY())
	assert.False(t, ios.ColorEnabled())
}

func TestIOStreams_ColorOverride(t *testing.T) {
	ios := &IOStreams{Out: &bytes.Buffer{}}

	ios.SetColorEnabled(true)
	assert.True(t, ios.ColorEnabled())
	assert.True(t, ios.ColorScheme().Enabled())

	ios.SetColorEnabled(false)
	assert.False(t, ios.ColorScheme().Enabled())
}

func TestIOStreams_AutoColorRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ios := &IOStreams{Out: &bytes.Buffer{}}
	ios.SetOutputTTY(true)

	assert.True(t, ios.IsOutputTTY())
	assert.False(t, ios.ColorEnabled())
}

func TestColorScheme_Icons(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		got     func(cs *ColorScheme) string
		want    string
	}{
		{name: "success plain", got: (*ColorScheme).SuccessIcon, want: "[ok]"},
		{name: "warning plain", got: (*ColorScheme).WarningIcon, want: "[warn]"},
		{name: "failure plain", got: (*ColorScheme).FailureIcon, want: "[error]"},
		{name: "info plain", got: (*ColorScheme).InfoIcon, want: "[info]"},
		{name: "success colored", enabled: true, got: (*ColorScheme).SuccessIcon, want: "✓"},
		{name: "failure colored", enabled: true, got: (*ColorScheme).FailureIcon, want: "✗"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := NewColorScheme(tt.enabled)
			assert.Contains(t, tt.got(cs), tt.want)
		})
	}
}

func TestColorScheme_DisabledReturnsInput(t *testing.T) {
	cs := NewColorScheme(false)
	assert.Equal(t, "plain", cs.Red("plain"))
	assert.Equal(t, "plain", cs.Bold("plain"))
	assert.Equal(t, "n=3", cs.Mutedf("n=%d", 3))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "10 seconds", FormatDuration(10*time.Second))
	assert.Equal(t, "500ms", FormatDuration(500*time.Millisecond))
	assert.Equal(t, "0 seconds", FormatDuration(0))
}
