// Package misc holds build information.
package misc

import (
	"runtime/debug"
)

// Set by linker: -X docmerge/misc.version=... -X docmerge/misc.gitHash=...
var (
	version = "dev"
	gitHash = ""
)

const appName = "docmerge"

// GetAppName returns program name used for logger names, temporary files and
// reports.
func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit the binary was built from, falling back to vcs
// information embedded by the toolchain.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}
