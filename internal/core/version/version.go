// Package version holds build information, set with -ldflags at release time.
package version

// Version is the release tag without the leading "v"
var Version = "dev"
