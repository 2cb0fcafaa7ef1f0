// Package version holds the release identifier embedded in requests and logs.
package version

// Version is overridden at build time via -ldflags "-X castlemap/pkg/version.Version=...".
var Version = "1.0.0"
