// Package buildinfo reports the build the binary came from.
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// Set at link time:
//
//	-X 'github.com/m3rciful/bookbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/bookbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/bookbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
//
// Values left at their defaults are filled from the module build info when the
// binary was built with VCS stamping.
var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	fill(bi)
}

func fill(bi *debug.BuildInfo) {
	if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "local" && s.Value != "" {
				Commit = s.Value[:min(len(s.Value), 7)]
			}
		case "vcs.time":
			if Date == "" {
				Date = s.Value
			}
		}
	}
}

// GoVersion returns the toolchain the binary was built with.
func GoVersion() string {
	return runtime.Version()
}
