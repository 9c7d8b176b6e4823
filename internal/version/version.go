package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Build-time variables injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	applyBuildInfo(bi)
}

// applyBuildInfo overwrites package vars from bi only when they still hold
// their default (ldflags-unset) values. ldflags always win.
func applyBuildInfo(bi *debug.BuildInfo) {
	if Version == "dev" {
		v := bi.Main.Version
		if v != "" && v != "(devel)" {
			Version = strings.TrimPrefix(v, "v")
		}
	}

	var revision, vcsTime string
	var modified bool
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			vcsTime = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	if Commit == "none" && revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		if modified {
			revision += "-dirty"
		}
		Commit = revision
	}

	if Date == "unknown" && vcsTime != "" {
		Date = vcsTime
	}
}

// String returns the one-line version banner, e.g.
// "domainlens version 1.0.0 (commit: abc1234, built: 2025-03-15T08:00:00Z)".
func String() string {
	return fmt.Sprintf("domainlens version %s (commit: %s, built: %s)", Version, Commit, Date)
}
