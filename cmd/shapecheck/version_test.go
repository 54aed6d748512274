package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionInfoString(t *testing.T) {
	tests := []struct {
		name string
		info versionInfo
		want string
	}{
		{
			"release",
			versionInfo{Version: "v0.3.0", GoVersion: "go1.25.3"},
			"shapecheck v0.3.0 (go1.25.3)",
		},
		{
			"vcs build",
			versionInfo{Version: "devel", GoVersion: "go1.25.3", Revision: "0123456789abcdef", Time: "2026-10-01T12:00:00Z"},
			"shapecheck devel (go1.25.3) commit 0123456789ab built 2026-10-01T12:00:00Z",
		},
		{
			"dirty tree",
			versionInfo{Version: "devel", GoVersion: "go1.25.3", Revision: "abc", Modified: true},
			"shapecheck devel (go1.25.3) commit abc+dirty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}

func TestVersionCmd(t *testing.T) {
	run := func(args ...string) string {
		t.Helper()
		cmd := newVersionCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())
		return strings.TrimSpace(out.String())
	}

	vi := readVersionInfo()
	assert.NotEmpty(t, vi.Version)
	assert.Equal(t, vi.String(), run())
	assert.Equal(t, vi.Version, run("--short"))

	old := buildVersion
	buildVersion = "v9.9.9"
	t.Cleanup(func() { buildVersion = old })
	assert.Equal(t, "v9.9.9", run("--short"))
}
