// Package version reports the build identity of the semevo binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/Sumatoshi-tech/semevo/pkg/version.Version=...".
var (
	// Version is the release version.
	Version = "dev"
	// BinaryGitHash is the Git hash of the semevo binary which is executing.
	BinaryGitHash = "<unknown>"
	// BuildDate is the UTC build timestamp.
	BuildDate = "<unknown>"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GitHash   string `json:"git_hash"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build info, falling back to the VCS revision embedded by
// the Go toolchain when no hash was injected.
func Get() Info {
	hash := BinaryGitHash

	if hash == "<unknown>" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					hash = s.Value
				}
			}
		}
	}

	return Info{
		Version:   Version,
		GitHash:   hash,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String formats the info on one line.
func (i Info) String() string {
	return fmt.Sprintf("semevo %s (%s, built %s, %s %s)", i.Version, i.GitHash, i.BuildDate, i.GoVersion, i.Platform)
}
