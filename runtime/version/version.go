// Package version returns the version string of the running build.
package version

import (
	"fmt"
	"time"
)

// The value of these vars are set through linker options.
var (
	gitCommit = "Local build"
	buildDate = "Moments ago"
	gitTag    = "Unknown"
)

// Version returns the version string of this build.
func Version() string {
	if buildDate == "{DATE}" {
		buildDate = time.Now().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s. Built at: %s", BuildData(), buildDate)
}

// BuildData returns the git tag and commit of the current build.
func BuildData() string {
	return fmt.Sprintf("ForkChoice/%s/%s", gitTag, gitCommit)
}
