// Package version provides centralized version information for the entrypoint
// binary. The version follows semantic versioning (semver) conventions.

package version

// EntrypointVersion holds the current entrypoint version.
// Format: major.minor.patch[-prerelease][+build]
const EntrypointVersion = "0.1.0-dev"
