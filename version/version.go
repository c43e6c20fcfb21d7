// Package version exists solely so that we can store the version of this
// application in one location.
//
// The version is shown by the --version flag, and is logged when a
// session starts, so keeping it here avoids the two drifting apart.
package version

import "fmt"

var (
	// version is populated with our release tag, at build time via
	// -ldflags "-X github.com/skx/snapvm/version.version=..."
	version = "unreleased"
)

// GetVersionBanner returns a banner which is suitable for printing, to show our name,
// version, and homepage link.
func GetVersionBanner() string {

	str := fmt.Sprintf("snapvm %s\n%s\n", version, "https://github.com/skx/snapvm/")
	return str
}

// GetVersionString returns our version number as a string.
func GetVersionString() string {
	return version
}
