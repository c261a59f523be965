package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = ".scriptterm/config.yaml"

// Config holds all scriptterm configuration.
type Config struct {
	Script   ScriptConfig   `yaml:"script"`
	Terminal TerminalConfig `yaml:"terminal"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Script: ScriptConfig{
			Location:     "_scripts/catalog.go",
			FetchTimeout: "30s",
		},
		Terminal: TerminalConfig{
			Prompt:     "$ ",
			RunCommand: "run",
			Theme:      "auto",
		},
		Runtime: RuntimeConfig{
			Packages: []string{"stdlib"},
		},
		Bridge: BridgeConfig{
			InboxSize:   64,
			EventBuffer: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   ".scriptterm/logs",
		},
	}
}

// Load loads configuration from a YAML file over the defaults. A missing
// file yields the defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if loc := os.Getenv("SCRIPTTERM_SCRIPT"); loc != "" {
		c.Script.Location = loc
	}
	if name := os.Getenv("SCRIPTTERM_RUN_COMMAND"); name != "" {
		c.Terminal.RunCommand = name
	}
	if theme := os.Getenv("SCRIPTTERM_THEME"); theme != "" {
		c.Terminal.Theme = theme
	}
	switch strings.ToLower(os.Getenv("SCRIPTTERM_DEBUG")) {
	case "1", "true", "yes", "on":
		c.Logging.Debug = true
	case "0", "false", "no", "off":
		c.Logging.Debug = false
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Script.Location) == "" {
		return fmt.Errorf("script.location must be set")
	}
	if _, err := time.ParseDuration(c.Script.FetchTimeout); c.Script.FetchTimeout != "" && err != nil {
		return fmt.Errorf("script.fetch_timeout: %w", err)
	}
	if err := c.Terminal.validate(); err != nil {
		return err
	}
	if err := c.Runtime.validate(); err != nil {
		return err
	}
	if c.Bridge.InboxSize <= 0 || c.Bridge.EventBuffer <= 0 {
		return fmt.Errorf("bridge buffer sizes must be positive (inbox_size=%d, event_buffer=%d)",
			c.Bridge.InboxSize, c.Bridge.EventBuffer)
	}
	return c.Logging.validate()
}

// ScriptConfig selects the script the terminal loads.
type ScriptConfig struct {
	Location     string `yaml:"location"` // local path or http(s) URL
	Watch        bool   `yaml:"watch"`
	FetchTimeout string `yaml:"fetch_timeout"`
}

// GetFetchTimeout returns the remote fetch timeout as a duration.
func (s ScriptConfig) GetFetchTimeout() time.Duration {
	d, err := time.ParseDuration(s.FetchTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// BridgeConfig sizes the bridge channels.
type BridgeConfig struct {
	InboxSize   int  `yaml:"inbox_size"`
	EventBuffer int  `yaml:"event_buffer"`
	Isolated    bool `yaml:"isolated"` // run the bridge in a child process
}
