// Package version records build-time version information for the leakview
// binary. The variables are stamped via -ldflags at release time.
package version

// Version is the semantic version of the build.
var Version = "dev"

// Commit is the git commit the binary was built from.
var Commit = "unknown"

// Date is the build timestamp.
var Date = "unknown"
