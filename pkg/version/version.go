// Package version reports build information injected with -ldflags, e.g.
// -X 'github.com/compozy/taskbridge/pkg/version.Version=v0.3.0'.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version    = ""
	CommitHash = ""
	BuildDate  = ""
)

type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

// Get returns the injected build information, falling back to the module
// build info recorded by the Go toolchain.
func Get() Info {
	info := Info{Version: Version, CommitHash: CommitHash, BuildDate: BuildDate}
	if build, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && build.Main.Version != "" && build.Main.Version != "(devel)" {
			info.Version = build.Main.Version
		}
		for _, setting := range build.Settings {
			switch {
			case setting.Key == "vcs.revision" && info.CommitHash == "":
				info.CommitHash = setting.Value
			case setting.Key == "vcs.time" && info.BuildDate == "":
				info.BuildDate = setting.Value
			}
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

func (i Info) String() string {
	s := i.Version
	if i.CommitHash != "" {
		s += fmt.Sprintf(" (%s)", shortHash(i.CommitHash))
	}
	if i.BuildDate != "" {
		s += " built " + i.BuildDate
	}
	return s
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
