// Package misc keeps program identity injected at build time.
package misc

// Set via ldflags:
// -X fontdl/misc.version=... -X fontdl/misc.githash=...
var (
	version = "dev"
	githash = ""
)

const appName = "fontdl"

// GetVersion returns program version.
func GetVersion() string {
	if len(version) == 0 {
		return "dev"
	}
	return version
}

// GetGitHash returns git commit the program was built from.
func GetGitHash() string {
	if len(githash) == 0 {
		return "unknown"
	}
	return githash
}

// GetAppName returns name of the program.
func GetAppName() string {
	return appName
}
