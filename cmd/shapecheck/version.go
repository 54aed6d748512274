package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// buildVersion overrides the module version, e.g.
// go build -ldflags "-X main.buildVersion=v0.3.0".
var buildVersion string

type versionInfo struct {
	Version   string
	GoVersion string
	Revision  string
	Time      string
	Modified  bool
}

func readVersionInfo() versionInfo {
	vi := versionInfo{Version: buildVersion, GoVersion: runtime.Version()}
	if info, ok := debug.ReadBuildInfo(); ok {
		if vi.Version == "" {
			vi.Version = info.Main.Version
		}
		vi.GoVersion = info.GoVersion
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				vi.Revision = s.Value
			case "vcs.time":
				vi.Time = s.Value
			case "vcs.modified":
				vi.Modified = s.Value == "true"
			}
		}
	}
	if vi.Version == "" || vi.Version == "(devel)" {
		vi.Version = "devel"
	}
	return vi
}

func (vi versionInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "shapecheck %s (%s)", vi.Version, vi.GoVersion)
	if vi.Revision == "" {
		return b.String()
	}
	rev := vi.Revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	fmt.Fprintf(&b, " commit %s", rev)
	if vi.Modified {
		b.WriteString("+dirty")
	}
	if vi.Time != "" {
		fmt.Fprintf(&b, " built %s", vi.Time)
	}
	return b.String()
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the shapecheck version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			vi := readVersionInfo()
			if short {
				cmd.Println(vi.Version)
				return
			}
			cmd.Println(vi.String())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version")
	return cmd
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
