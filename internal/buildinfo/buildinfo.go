// Package buildinfo carries the version stamped in at link time:
//
//	go build -ldflags "-X vrptw/internal/buildinfo.Version=v1.2.0 -X vrptw/internal/buildinfo.Commit=$(git rev-parse HEAD)"
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the build metadata. When Commit was not stamped, the VCS
// revision recorded by the Go toolchain is used instead.
func Info() map[string]string {
	commit, built := Commit, BuiltAt
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "":
				commit = s.Value
			case s.Key == "vcs.time" && built == "":
				built = s.Value
			}
		}
	}
	return map[string]string{
		"version":   Version,
		"commit":    commit,
		"builtAt":   built,
		"goVersion": runtime.Version(),
	}
}

// String is the one-line form printed by `vrptw version`.
func String() string {
	i := Info()
	s := fmt.Sprintf("vrptw %s (%s)", i["version"], i["goVersion"])
	if i["commit"] != "" {
		s += " commit " + i["commit"]
	}
	if i["builtAt"] != "" {
		s += " built " + i["builtAt"]
	}
	return s
}
