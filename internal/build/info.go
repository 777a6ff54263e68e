// Package build exposes version and build metadata for the binary.
package build

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	_ "embed"
)

//go:embed VERSION
var rawVersion []byte

// Set via -ldflags at release time; Version falls back to the embedded
// VERSION file for local development builds.
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

var startTime = time.Now()

//nolint:gochecknoinits // init version.
func init() {
	if Version == "" {
		Version = strings.TrimSpace(string(rawVersion))
	}
}

// Info is a snapshot of the build metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Uptime    string `json:"uptime"`
}

// GetBuildInfo returns the current build metadata.
func GetBuildInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Uptime:    time.Since(startTime).String(),
	}
}

// String renders the metadata one field per line, skipping unset fields.
func (i Info) String() string {
	lines := []string{"Version: " + i.Version}

	if i.Commit != "" {
		lines = append(lines, "Commit: "+i.Commit)
	}

	if i.BuildTime != "" {
		lines = append(lines, "Build Time: "+i.BuildTime)
	}

	lines = append(lines,
		"Go Version: "+i.GoVersion,
		"Platform: "+i.Platform,
		"Uptime: "+i.Uptime,
	)

	return strings.Join(lines, "\n") + "\n"
}

// Short returns "version (commit)" for log banners.
func Short() string {
	if Commit != "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}

	return Version
}
