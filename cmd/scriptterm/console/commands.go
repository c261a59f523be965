package console

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"scriptterm/internal/command"
	"scriptterm/internal/protocol"
)

// builtins returns the command table in help order. The run command is last
// so a script-specific name never shadows a builtin.
func builtins(runCommand string) []command.Spec[action] {
	return []command.Spec[action]{
		{Name: "help", Description: "List available commands", Action: cmdHelp},
		{Name: "clear", Description: "Clear the output", Action: cmdClear},
		{Name: "history", Description: "Show command history", Action: cmdHistory},
		{Name: "reload", Description: "Fetch and load the script again", Action: cmdReload},
		{Name: "status", Description: "Show runtime and script status", Action: cmdStatus},
		{Name: "exit", Description: "Leave the terminal", Action: cmdExit},
		{Name: runCommand, Description: "Run the loaded script with arguments", Action: cmdRun},
	}
}

func cmdHelp(m Model, _ string) (Model, tea.Cmd) {
	specs := m.registry.Specs()
	width := 0
	for _, s := range specs {
		width = max(width, len(s.Name))
	}
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, s := range specs {
		fmt.Fprintf(&b, "\n  %-*s  %s", width, s.Name, s.Description)
	}
	m.addLine(kindInfo, b.String())
	m.addLine(kindPlain, "")
	return m, nil
}

func cmdClear(m Model, _ string) (Model, tea.Cmd) {
	m.log.clear()
	m.refresh()
	return m, nil
}

func cmdHistory(m Model, _ string) (Model, tea.Cmd) {
	for i, entry := range m.history.Entries() {
		m.addLine(kindPlain, fmt.Sprintf("%4d  %s", i+1, entry))
	}
	return m, nil
}

func cmdReload(m Model, _ string) (Model, tea.Cmd) {
	if !m.runtimeReady {
		m.addLine(kindWarning, "Runtime not ready")
		return m, nil
	}
	m.addLine(kindInfo, "Reloading script...")
	return m.reload()
}

func cmdStatus(m Model, _ string) (Model, tea.Cmd) {
	lines := []string{fmt.Sprintf("Runtime: %s", m.runtimeState)}
	if m.statusMessage != "" {
		lines[0] += fmt.Sprintf(" (%s)", m.statusMessage)
	}
	if m.scriptLoaded {
		lines = append(lines, fmt.Sprintf("Script: %s", m.scriptName))
	} else {
		lines = append(lines, "Script: not loaded")
	}
	if m.cfg.ScriptLocation != "" {
		lines = append(lines, fmt.Sprintf("Source: %s", m.cfg.ScriptLocation))
	}
	lines = append(lines, fmt.Sprintf("Commands run: %d", m.history.Len()))
	m.addLine(kindInfo, strings.Join(lines, "\n"))
	return m, nil
}

func cmdExit(m Model, _ string) (Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func cmdRun(m Model, args string) (Model, tea.Cmd) {
	if !m.runtimeReady {
		m.addLine(kindWarning, "Runtime not ready")
		return m, nil
	}
	if !m.scriptLoaded {
		m.addLine(kindWarning, "No script loaded")
		return m, nil
	}
	run := protocol.Run{ID: m.cfg.NewRunID(), Args: command.Split(args)}
	if run.Args == nil {
		run.Args = []string{}
	}
	m.pending = pendingRun
	m.activeRun = run.ID
	m.input.Blur()
	m.logger.Debug("run requested", zap.String("run_id", run.ID), zap.Strings("args", run.Args))
	return m, m.sendCmd(run)
}
