// Package common holds the small process-level helpers shared by the CLI and
// the local web service.
package common

import (
	"runtime/debug"
)

// Set at build time with
// -ldflags "-X github.com/bluebird-io/portal/internal/common.Version=v1.0.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type BuildInfo struct {
	Version string
	Commit  string
}

// ShortCommit is the first eight characters of the commit, or "" when the
// commit is unknown.
func (b BuildInfo) ShortCommit() string {
	if b.Commit == "unknown" || len(b.Commit) == 0 {
		return ""
	}
	if len(b.Commit) > 8 {
		return b.Commit[:8]
	}
	return b.Commit
}

// GetModuleBuildInfo prefers the ldflags values and falls back to the
// module and vcs information the toolchain embeds.
func GetModuleBuildInfo() (BuildInfo, bool) {
	if Version != "dev" {
		return BuildInfo{Version: Version, Commit: GitCommit}, true
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return BuildInfo{}, false
	}

	build := BuildInfo{Version: info.Main.Version}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			build.Commit = setting.Value
			break
		}
	}
	return build, true
}
