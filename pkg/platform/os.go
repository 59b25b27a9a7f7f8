// SPDX-License-Identifier: MPL-2.0

// Package platform centralizes OS detection helpers and the GOOS string
// constants used across the codebase.
package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// IsPosix reports whether the current OS follows POSIX shell and path
// conventions (everything except Windows, as far as this codebase cares).
func IsPosix() bool {
	return runtime.GOOS != Windows
}
