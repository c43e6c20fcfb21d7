package version

import (
	"strings"
	"testing"
)

// TestVersion ensures the banner names us, and carries our version.
func TestVersion(t *testing.T) {
	x := GetVersionString()
	y := GetVersionBanner()

	// Banner should have our version
	if !strings.Contains(y, x) {
		t.Fatalf("banner doesn't contain our version")
	}
	if !strings.HasPrefix(y, "snapvm ") {
		t.Fatalf("banner doesn't contain our name: %s", y)
	}
}
