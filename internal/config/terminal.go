package config

import (
	"fmt"
	"strings"
)

// ValidThemes lists the color themes of the terminal UI.
var ValidThemes = []string{"auto", "dark", "light", "mono"}

// TerminalConfig configures the interactive terminal.
type TerminalConfig struct {
	Prompt     string `yaml:"prompt"`
	RunCommand string `yaml:"run_command"` // name of the command that runs the script
	Theme      string `yaml:"theme"`
}

func (t TerminalConfig) validate() error {
	if strings.TrimSpace(t.RunCommand) == "" {
		return fmt.Errorf("terminal.run_command must not be empty")
	}
	if t.RunCommand != strings.TrimSpace(t.RunCommand) {
		return fmt.Errorf("terminal.run_command %q has surrounding whitespace", t.RunCommand)
	}
	if !contains(ValidThemes, t.Theme) {
		return fmt.Errorf("unknown theme %q (valid: %s)", t.Theme, strings.Join(ValidThemes, ", "))
	}
	return nil
}

// ValidPackageSets lists the interpreter package sets.
var ValidPackageSets = []string{"stdlib", "unrestricted"}

// RuntimeConfig configures the script interpreter.
type RuntimeConfig struct {
	Packages []string `yaml:"packages"`
}

func (r RuntimeConfig) validate() error {
	if len(r.Packages) == 0 {
		return fmt.Errorf("runtime.packages must name at least one package set")
	}
	for _, p := range r.Packages {
		if !contains(ValidPackageSets, p) {
			return fmt.Errorf("unknown package set %q (valid: %s)", p, strings.Join(ValidPackageSets, ", "))
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
