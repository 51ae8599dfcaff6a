// Package version carries the build version string.
package version

// Version is the current release, overridable at build time via
// -ldflags "-X scriba/internal/version.Version=...".
var Version = "0.1.0"
