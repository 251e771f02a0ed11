// Package config loads coldtrace configuration from an optional YAML file
// with environment variable overrides. Environment always wins, so a
// deployment can ship a base file and override per instance.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Defaults applied after file and environment are merged.
const (
	DefaultDatabase = "coldtrace.db"
	DefaultLogLevel = "info"
)

// Config holds the runtime settings shared by every coldtrace command.
type Config struct {
	// Database is the SQLite database path.
	Database string `yaml:"database" env:"COLDTRACE_DB"`

	// Admin is the deployer identity seeded as administrator on first open.
	Admin string `yaml:"admin" env:"COLDTRACE_ADMIN"`

	// ProfileDir is an optional directory of CUE threshold profiles to
	// register at startup.
	ProfileDir string `yaml:"profile_dir" env:"COLDTRACE_PROFILE_DIR"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"COLDTRACE_LOG_LEVEL"`
}

// Load reads configuration from path (skipped when empty or absent) and then
// applies environment overrides. Defaults fill whatever is still unset, so
// precedence is env, then file, then defaults.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file; env and defaults cover everything.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return cfg, nil
}
