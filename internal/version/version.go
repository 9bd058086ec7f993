// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// set with -ldflags "-X github.com/sustainable-computing-io/powermon/internal/version.version=..."
var (
	version   string
	buildTime string
	gitBranch string
	gitCommit string
)

type VersionInfo struct {
	Version   string
	BuildTime string
	GitBranch string
	GitCommit string

	GoVersion string
	GoOS      string
	GoArch    string
}

// Info returns the version information; binaries built without ldflags
// report the module version recorded by the go toolchain
func Info() VersionInfo {
	v := version
	if v == "" {
		v = moduleVersion()
	}
	return VersionInfo{
		Version:   v,
		BuildTime: buildTime,
		GitBranch: gitBranch,
		GitCommit: gitCommit,

		GoVersion: runtime.Version(),
		GoOS:      runtime.GOOS,
		GoArch:    runtime.GOARCH,
	}
}

func moduleVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

// String returns the one line form printed by --version
func (v VersionInfo) String() string {
	commit := v.GitCommit
	if commit == "" {
		commit = "unknown"
	}
	return fmt.Sprintf("powermon %s (commit: %s, %s %s/%s)", v.Version, commit, v.GoVersion, v.GoOS, v.GoArch)
}
