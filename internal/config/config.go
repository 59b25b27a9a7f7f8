// SPDX-License-Identifier: MPL-2.0

// Package config loads the flowrun configuration file and environment
// overrides into the settings consumed by the execution engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"flowrun/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "flowrun"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix is the prefix for environment variable overrides
	// (FLOWRUN_SHELL_EXECUTABLE and friends).
	EnvPrefix = "FLOWRUN"
)

type (
	// Config is the on-disk configuration surface.
	Config struct {
		Shell     ShellConfig     `mapstructure:"shell"`
		Benchmark BenchmarkConfig `mapstructure:"benchmark"`
		Verbose   bool            `mapstructure:"verbose"`
	}

	// ShellConfig configures the interpreter applied to every command.
	ShellConfig struct {
		// Executable is the interpreter path or name. Empty means
		// autodetect (bash, then sh).
		Executable string `mapstructure:"executable"`
		// Prefix is text injected before every command.
		Prefix string `mapstructure:"prefix"`
		// Suffix is text injected after every command.
		Suffix string `mapstructure:"suffix"`
	}

	// BenchmarkConfig configures the resource sampler.
	BenchmarkConfig struct {
		// Interval is the sampling interval.
		Interval time.Duration `mapstructure:"interval"`
	}
)

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() *Config {
	return &Config{
		Benchmark: BenchmarkConfig{Interval: 100 * time.Millisecond},
	}
}

// ConfigDir returns the flowrun configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the configuration from the config file (if present) and
// FLOWRUN_* environment variables. A missing config file is not an error;
// defaults apply.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("shell.executable", defaults.Shell.Executable)
	v.SetDefault("shell.prefix", defaults.Shell.Prefix)
	v.SetDefault("shell.suffix", defaults.Shell.Suffix)
	v.SetDefault("benchmark.interval", defaults.Benchmark.Interval)
	v.SetDefault("verbose", defaults.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(envKeyReplacer)

	path := configFilePathOverride
	if path == "" {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if !fileExists(path) {
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
