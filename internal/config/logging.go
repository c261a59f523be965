package config

import "fmt"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Debug      bool            `yaml:"debug"`                // Master toggle - false = no logging
	Level      string          `yaml:"level"`                // debug, info, warn, error
	Dir        string          `yaml:"dir"`                  // log file directory in debug mode
	JSON       bool            `yaml:"json"`                 // JSON lines instead of console encoding
	Categories map[string]bool `yaml:"categories,omitempty"` // Per-category toggles
}

func (c LoggingConfig) validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Level)
	}
	if c.Debug && c.Dir == "" {
		return fmt.Errorf("logging.dir must be set when debug is on")
	}
	return nil
}
