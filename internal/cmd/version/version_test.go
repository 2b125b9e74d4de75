package version

import (
	"testing"

	"github.com/schmitthub/testdb/internal/cmdutil"
	"github.com/schmitthub/testdb/internal/iostreams/iostreamstest"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{
			name:    "version only",
			version: "1.2.3",
			want:    "testdb version 1.2.3\n",
		},
		{
			name:    "version with commit",
			version: "v1.2.3",
			commit:  "abc1234",
			want:    "testdb version 1.2.3 (abc1234)\n",
		},
		{
			name:    "dev build",
			version: "dev",
			commit:  "none",
			want:    "testdb version dev\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.version, tt.commit)
			if got != tt.want {
				t.Errorf("Format(%q, %q) = %q, want %q", tt.version, tt.commit, got, tt.want)
			}
		})
	}
}

func TestNewCmdVersion(t *testing.T) {
	tio := iostreamstest.New()
	cmd := NewCmdVersion(&cmdutil.Factory{IOStreams: tio.IOStreams}, "1.0.0", "abc")
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tio.OutBuf.String(); got != "testdb version 1.0.0 (abc)\n" {
		t.Errorf("output = %q", got)
	}
}
