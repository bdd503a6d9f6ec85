// Package config loads the optional CLI configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the CLI defaults that can be overridden from a TOML file
type Config struct {
	// FFmpegPath and FFprobePath locate the external decoder binaries
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`

	// Method is the similarity method for new collections; empty selects
	// the library default.
	Method string `toml:"method"`

	// Neighbors is the default k for playlists and evaluation
	Neighbors int `toml:"neighbors"`

	// Verbosity is the default debug level (0 quiet .. 5 trace)
	Verbosity int `toml:"verbosity"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Neighbors:   5,
		Verbosity:   0,
	}
}

// DefaultPath returns the per-user location of the configuration file
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "musly", "musly.toml")
}

// Load reads the configuration at path, falling back to defaults when the
// file does not exist. An empty path loads DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
