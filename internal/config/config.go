package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the tool-level configuration, read from the user's
// config.yaml. Everything has a sensible default; the file is optional.
type Config struct {
	// CacheDir is where downloaded packages are stored.
	CacheDir string `yaml:"cache-dir"`

	// MaxConcurrentLinks bounds simultaneous filesystem link/copy
	// operations across all installs.
	MaxConcurrentLinks int64 `yaml:"max-concurrent-links"`

	// NonInteractive disables every interactive prompt.
	NonInteractive bool `yaml:"non-interactive"`

	// LogLevel is the minimum level of log output (debug, info, warn,
	// error).
	LogLevel string `yaml:"log-level"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		CacheDir:           defaultCacheDir(),
		MaxConcurrentLinks: 100,
		LogLevel:           "warn",
	}
}

// DefaultPath returns the location of the user's config file.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".terrarium", "config.yaml")
}

func defaultCacheDir() string {
	cache, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "terrarium")
	}
	return filepath.Join(cache, "terrarium")
}

// Load reads a config file, overlaying it on the defaults. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
