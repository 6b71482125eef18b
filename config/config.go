// Package config loads redback settings from a TOML file
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/byut/redback/terminal"
)

// Bell modes
const (
	BellNone     = "none"
	BellTerminal = "terminal"
	BellAudio    = "audio"
)

// FileName is the config file looked up under the user config directory
const FileName = "config.toml"

// Config is the full set of settings
type Config struct {
	// Backend is "windowed" or "passthrough"
	Backend string `toml:"backend"`
	// Terminal names the terminfo entry; empty uses $TERM
	Terminal string `toml:"terminal"`
	// Prompt is shown by the passthrough backend
	Prompt string `toml:"prompt"`
	// Bell is "none", "terminal" or "audio"
	Bell string `toml:"bell"`

	Log Log `toml:"log"`
}

// Log configures the process logger
type Log struct {
	// File receives log output; empty means stderr
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Backend: terminal.KindWindowed.String(),
		Prompt:  terminal.DefaultPrompt,
		Bell:    BellTerminal,
		Log: Log{
			Level: log.InfoLevel.String(),
		},
	}
}

// Dir returns the redback directory under the user config base
// Falls back to ~/.config when UserConfigDir is unavailable
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(base) == "" {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", errors.New("cannot determine config directory")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "redback"), nil
}

// DefaultPath returns the config file path under Dir
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads path over the defaults; a missing file yields the defaults
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads path over the defaults; the file must exist
// Unknown keys are rejected so typos do not pass silently
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.Errorf("parsing %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Validate rejects unknown backend, bell and log level names
func (c *Config) Validate() error {
	if _, err := c.Kind(); err != nil {
		return err
	}
	switch c.Bell {
	case BellNone, BellTerminal, BellAudio:
	default:
		return errors.Errorf("unknown bell %q", c.Bell)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Kind resolves the backend name
func (c *Config) Kind() (terminal.Kind, error) {
	return terminal.ParseKind(c.Backend)
}

// LogLevel resolves the log level name
func (c *Config) LogLevel() (log.Level, error) {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return 0, errors.Wrapf(err, "log level %q", c.Log.Level)
	}
	return lvl, nil
}
