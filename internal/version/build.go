// Package version reports the chainpay build and checks GitHub for newer
// releases.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/mrz1836/chainpay/internal/version.version=...".
//
//nolint:gochecknoglobals // Populated by the linker
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Build describes the running binary.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

// Current returns the linker-provided build information.
func Current() Build {
	return Build{
		Version: version,
		Commit:  commit,
		Date:    date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}

// String renders "v1.2.3 (commit: abc1234, built: 2026-01-02)".
func (b Build) String() string {
	v, c, d := b.Version, b.Commit, b.Date
	if v == "" {
		v = "dev"
	}
	if c == "" {
		c = "unknown"
	}
	if d == "" {
		d = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// IsDev reports whether the binary was built without a release tag.
func (b Build) IsDev() bool {
	return isDev(b.Version)
}
