// Package config reads the optional per-user configuration file that
// supplies defaults for command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultDirName is the per-user configuration directory name
	DefaultDirName = ".simdex"
	// DefaultFileName is the default configuration filename
	DefaultFileName = "config.yaml"
)

// Config holds defaults for flags shared across commands. Values given
// on the command line always win over the file.
type Config struct {
	// DBPath is the catalog database location
	DBPath string `yaml:"db_path,omitempty"`

	// Algo selects the perceptual hash: ahash, dhash or phash
	Algo string `yaml:"algo,omitempty"`

	// Threshold is the Hamming distance for duplicate grouping
	Threshold int `yaml:"threshold,omitempty"`

	// Workers is the number of parallel hash workers
	Workers int `yaml:"workers,omitempty"`

	// WordList is the word list file for spelling suggestions
	WordList string `yaml:"word_list,omitempty"`

	// Listen is the serve command's listen address
	Listen string `yaml:"listen,omitempty"`

	// path is where the config was loaded from
	path string
}

// Default returns the built-in configuration
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DBPath:    filepath.Join(home, DefaultDirName, "catalog.db"),
		Algo:      "phash",
		Threshold: 10,
		Workers:   8,
		Listen:    ":8080",
	}
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultDirName, DefaultFileName)
}

// Load reads the config file at path over the built-in defaults. An
// empty path means the default location, where a missing file is fine;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.path = path
	return cfg, nil
}

// Path returns the file the config was loaded from, empty if defaults
func (c *Config) Path() string {
	return c.path
}
