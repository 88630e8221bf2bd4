// Package config loads engine configuration from a JSON file with sensible
// defaults for everything left unset.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config tunes the script engine. All fields are optional.
type Config struct {
	ScriptTimeout   int    `json:"scriptTimeout,omitempty"` // milliseconds
	MaxResolveDepth int    `json:"maxResolveDepth,omitempty"`
	KeepUnresolved  *bool  `json:"keepUnresolved,omitempty"`
	HistoryLimit    int    `json:"historyLimit,omitempty"`
	HistoryDB       string `json:"historyDb,omitempty"`
	NoColor         *bool  `json:"noColor,omitempty"`
}

// ConfigFilenames contains the possible config file names, checked in order.
var ConfigFilenames = []string{
	".hitscript.config.json",
	"hitscript.config.json",
}

const (
	DefaultScriptTimeoutMs = 5000
	DefaultMaxResolveDepth = 5
	DefaultHistoryLimit    = 50
)

// Default returns a config with every field at its default.
func Default() *Config {
	return &Config{
		ScriptTimeout:   DefaultScriptTimeoutMs,
		MaxResolveDepth: DefaultMaxResolveDepth,
		HistoryLimit:    DefaultHistoryLimit,
	}
}

// Load reads the first config file found in dir, applying defaults for
// unset fields. A missing file is not an error; defaults are returned.
func Load(dir string) (*Config, error) {
	for _, name := range ConfigFilenames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}

		cfg := &Config{}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		cfg.applyDefaults()
		return cfg, nil
	}
	return Default(), nil
}

func (c *Config) applyDefaults() {
	if c.ScriptTimeout <= 0 {
		c.ScriptTimeout = DefaultScriptTimeoutMs
	}
	if c.MaxResolveDepth <= 0 {
		c.MaxResolveDepth = DefaultMaxResolveDepth
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
}

// ScriptTimeoutDuration returns the script timeout as a duration.
func (c *Config) ScriptTimeoutDuration() time.Duration {
	return time.Duration(c.ScriptTimeout) * time.Millisecond
}

// GetKeepUnresolved returns the keep-unresolved setting, defaulting to
// false: unresolved placeholders are dropped from resolved output.
func (c *Config) GetKeepUnresolved() bool {
	return getBool(c.KeepUnresolved, false)
}

// GetNoColor returns the no-color setting, defaulting to false.
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}
