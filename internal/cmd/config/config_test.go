package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/iostreams/iostreamstest"
)

func TestNewCmdConfig(t *testing.T) {
	f := &cmdutil.Factory{IOStreams: iostreamstest.New().IOStreams}
	cmd := NewCmdConfig(f)

	assert.Equal(t, "config", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Equal(t, []string{"check"}, names)
}
