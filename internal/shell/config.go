// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"flowrun/pkg/platform"
)

// FailFastPrefix makes bash abort on first error, unset variable use, or
// pipeline failure. It is prepended to the prefix whenever the configured
// executable is bash.
const FailFastPrefix = "set -euo pipefail; "

// Config holds the interpreter settings applied to every command: the shell
// executable plus prefix and suffix text injected around the command body.
// It is constructed once by the workflow engine and passed by reference into
// every Runner; all accessors are safe for concurrent use.
type Config struct {
	mu         sync.Mutex
	executable string
	prefix     string
	suffix     string
}

// NewConfig returns an empty Config. The executable is unset, meaning the
// system default shell is used.
func NewConfig() *Config {
	return &Config{}
}

// DetectDefault probes the search path for a default interpreter: bash if
// available, otherwise sh with a warning, otherwise the executable is left
// unset with a warning (the system default is used). Run once at engine
// startup.
func (c *Config) DetectDefault(logger *log.Logger) {
	if !platform.IsPosix() {
		return
	}
	if _, err := exec.LookPath("bash"); err == nil {
		if err := c.SetExecutable("bash"); err == nil {
			return
		}
	}
	logger.Warn("cannot set bash as default shell because it is not available in your PATH, falling back to sh")
	if _, err := exec.LookPath("sh"); err == nil {
		if err := c.SetExecutable("sh"); err == nil {
			return
		}
	}
	logger.Warn("cannot fall back to sh since it seems to be not available on this system, using whatever is defined as default")
}

// SetExecutable resolves path via the system search path when it is not
// already absolute (on POSIX systems) and stores it as the active
// interpreter. When the resolved basename is bash, the fail-fast prefix is
// prepended to the current prefix, at most once.
func (c *Config) SetExecutable(path string) error {
	resolved := path
	if platform.IsPosix() && !filepath.IsAbs(path) {
		abs, err := exec.LookPath(path)
		if err != nil {
			return &ExecutableNotFoundError{Name: path, Err: err}
		}
		resolved = abs
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if filepath.Base(resolved) == "bash" && !strings.HasPrefix(c.prefix, FailFastPrefix) {
		c.prefix = FailFastPrefix + c.prefix
	}
	c.executable = resolved
	return nil
}

// Executable returns the active interpreter path, or "" when unset.
func (c *Config) Executable() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executable
}

// SetPrefix replaces the prefix text unconditionally.
func (c *Config) SetPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefix = prefix
}

// SetSuffix replaces the suffix text unconditionally.
func (c *Config) SetSuffix(suffix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suffix = suffix
}

// Prefix returns the current prefix text.
func (c *Config) Prefix() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefix
}

// Suffix returns the current suffix text.
func (c *Config) Suffix() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suffix
}
