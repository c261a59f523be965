package console

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"scriptterm/internal/protocol"
)

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.stdinMode {
			return m.answerStdin(protocol.StdinResponse{Interrupt: true}, "^C")
		}
		m.quitting = true
		return m, tea.Quit

	case tea.KeyCtrlD:
		if m.stdinMode {
			return m.answerStdin(protocol.StdinResponse{EOF: true}, "^D")
		}
		if !m.busy() && m.input.Value() == "" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.stdinMode {
		if msg.Type == tea.KeyEnter {
			value := m.input.Value()
			return m.answerStdin(protocol.StdinResponse{Response: value}, value)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	// Input is disabled until the run or load settles.
	if m.busy() {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyUp:
		if entry, ok := m.history.Prev(); ok {
			m.input.SetValue(entry)
			m.input.CursorEnd()
		}
		return m, nil
	case tea.KeyDown:
		if entry, ok := m.history.Next(); ok {
			m.input.SetValue(entry)
			m.input.CursorEnd()
		}
		return m, nil
	case tea.KeyTab:
		return m.complete(), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit dispatches the current line to the first matching command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	raw := m.input.Value()
	line := strings.TrimSpace(raw)
	if line == "" {
		return m, nil
	}
	m.input.Reset()

	spec, args, ok := m.registry.Match(line)
	if !ok {
		m.addLine(kindEcho, m.cfg.Prompt+raw)
		m.addLine(kindError, "Unknown command: "+line)
		m.addLine(kindMuted, "Type 'help' for available commands.")
		return m, nil
	}

	m.history.Append(raw)
	m.addLine(kindEcho, m.cfg.Prompt+raw)
	m.logger.Debug("command", zap.String("name", spec.Name), zap.String("args", args))
	return spec.Action(m, args)
}

// complete expands a unique command prefix or lists the candidates.
func (m Model) complete() Model {
	prefix := m.input.Value()
	matches := m.registry.Complete(prefix)
	switch len(matches) {
	case 0:
	case 1:
		m.input.SetValue(matches[0])
		m.input.CursorEnd()
	default:
		m.addLine(kindMuted, strings.Join(matches, "\n"))
	}
	return m
}

func (m Model) answerStdin(resp protocol.StdinResponse, echo string) (tea.Model, tea.Cmd) {
	resp.RunID = m.stdinRunID
	m.addChunk(m.stdinPrompt + echo + "\n")
	m.leaveStdinMode()
	m.input.Reset()
	return m, m.sendCmd(resp)
}
