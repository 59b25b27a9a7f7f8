// SPDX-License-Identifier: MPL-2.0

package config

import "strings"

// envKeyReplacer maps nested config keys (shell.executable) to environment
// variable segments (SHELL_EXECUTABLE).
var envKeyReplacer = strings.NewReplacer(".", "_")

// configDirOverride allows tests to override the config directory.
// This is necessary because os.UserHomeDir() doesn't reliably respect
// the HOME environment variable on all platforms (e.g., macOS in CI).
var configDirOverride string

// configFilePathOverride points at an explicit config file (--config flag).
var configFilePathOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
	configFilePathOverride = ""
}

// SetConfigDirOverride sets a custom config directory path. Primarily for
// tests that need to bypass os.UserHomeDir().
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// SetConfigFilePathOverride sets an explicit config file path, used by the
// --config CLI flag.
func SetConfigFilePathOverride(path string) {
	configFilePathOverride = path
}
