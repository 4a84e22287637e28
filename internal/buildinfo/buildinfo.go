// Package buildinfo carries build-time metadata injected via ldflags.
package buildinfo

// Set at build time with:
//
//	-ldflags "-X github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/buildinfo.version=v1.2.3"
var (
	version   = "dev"
	buildDate = "unknown"
)

// Version returns the build version string.
func Version() string {
	return version
}

// BuildDate returns the build date string.
func BuildDate() string {
	return buildDate
}
