// Package config handles the optional odsq defaults file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the defaults file looked up in the home directory.
const FileName = ".odsq.toml"

// Config holds defaults for command-line flags. Flags given explicitly
// always win.
type Config struct {
	// Database is the SQLite database path.
	Database string `toml:"database"`

	// Format is the output format: "text" or "json".
	Format string `toml:"format"`

	// Parallelism bounds concurrent per-element filtering. 0 means the
	// engine default.
	Parallelism int `toml:"parallelism"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`
}

// DefaultPath returns $HOME/.odsq.toml, or ./.odsq.toml when the home
// directory is unknown.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, FileName)
	}
	return filepath.Join(".", FileName)
}

// Load reads the defaults file at DefaultPath. A missing file yields an
// empty Config.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{}, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path. Unknown keys are
// rejected.
func LoadFrom(path string) (*Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &config, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", c.Format)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism)
	}
	return nil
}
