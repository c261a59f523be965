package console

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"scriptterm/internal/protocol"
)

// Update handles incoming messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bridgeEventMsg:
		next, cmd := m.handleEvent(msg.event)
		return next, tea.Batch(cmd, next.waitForEvent())

	case bridgeClosedMsg:
		m.runtimeReady = false
		m.stdinMode = false
		m.addLine(kindError, "Runtime bridge stopped")
		if m.busy() {
			return m, m.acceptInput()
		}
		return m, nil

	case scriptFetchedMsg:
		return m.handleFetched(msg)

	case scriptChangedMsg:
		return m.handleScriptChanged()

	case sendFailedMsg:
		m.logger.Warn("send failed", zap.String("type", string(msg.req.RequestType())), zap.Error(msg.err))
		m.addLine(kindError, fmt.Sprintf("Failed to reach runtime: %v", msg.err))
		if m.busy() {
			return m, m.acceptInput()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	m.width = max(msg.Width, 0)
	m.height = max(msg.Height, 0)

	// header, divider, input line and status bar
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = max(m.height-4, 1)
	m.input.Width = max(m.width-len(m.cfg.Prompt)-1, 1)
	m.refresh()
	return m
}

func (m Model) handleEvent(ev protocol.Event) (Model, tea.Cmd) {
	switch e := ev.(type) {
	case protocol.Status:
		m.runtimeState = e.State
		m.statusMessage = e.Message
		switch e.State {
		case protocol.StateReady:
			m.addLine(kindSuccess, e.Message)
		case protocol.StateError:
			m.runtimeReady = false
			m.addLine(kindError, "Runtime failed to start: "+e.Message)
		default:
			m.addLine(kindInfo, e.Message)
		}
		return m, nil

	case protocol.Initialized:
		m.runtimeReady = true
		m.runtimeState = protocol.StateReady
		if m.scriptLoaded || m.pending == pendingRun {
			return m, nil
		}
		return m.reload()

	case protocol.ScriptLoaded:
		m.scriptLoaded = true
		m.scriptName = e.Name
		m.addLine(kindSuccess, fmt.Sprintf("Script %q loaded", e.Name))
		if m.pending == pendingLoad {
			return m.settle()
		}
		return m, nil

	case protocol.Error:
		m.addLine(kindError, e.Message)
		if m.pending == pendingLoad {
			return m.settle()
		}
		return m, nil

	case protocol.Output:
		m.addChunk(e.Text)
		return m, nil

	case protocol.StdinRequest:
		m.stdinMode = true
		m.stdinRunID = e.RunID
		m.stdinPrompt = e.Prompt
		m.input.Prompt = e.Prompt
		m.input.Reset()
		return m, m.input.Focus()

	case protocol.Complete:
		return m.handleComplete(e)
	}

	m.logger.Debug("unhandled event", zap.String("type", string(ev.EventType())))
	return m, nil
}

func (m Model) handleComplete(c protocol.Complete) (Model, tea.Cmd) {
	if c.RunID != "" && m.activeRun != "" && c.RunID != m.activeRun {
		m.logger.Warn("completion for unknown run", zap.String("run_id", c.RunID), zap.String("active", m.activeRun))
		return m, nil
	}
	m.log.endChunk()
	m.leaveStdinMode()
	if !c.Success {
		switch {
		case c.Error != "":
			m.addLine(kindError, c.Error)
		case c.ExitCode != 0:
			m.addLine(kindError, fmt.Sprintf("Process exited with status %d", c.ExitCode))
		}
	}
	return m.settle()
}

// settle re-enables input and starts a reload that arrived while busy.
func (m Model) settle() (Model, tea.Cmd) {
	cmd := m.acceptInput()
	if m.reloadQueued {
		next, reload := m.reload()
		return next, tea.Batch(cmd, reload)
	}
	return m, cmd
}

func (m Model) handleFetched(msg scriptFetchedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		m.addLine(kindError, fmt.Sprintf("Failed to fetch script: %v", msg.err))
		return m.settle()
	}
	m.logger.Debug("script fetched",
		zap.String("name", msg.script.Name),
		zap.String("location", msg.script.Location),
		zap.Int("bytes", len(msg.script.Code)))
	return m, m.sendCmd(protocol.LoadScript{Name: msg.script.Name, Code: msg.script.Code})
}

func (m Model) handleScriptChanged() (Model, tea.Cmd) {
	rearm := m.waitForChange()
	if !m.runtimeReady {
		return m, rearm
	}
	if m.busy() {
		m.reloadQueued = true
		m.addLine(kindWarning, "Script changed, reload queued")
		return m, rearm
	}
	m.addLine(kindInfo, "Script changed, reloading...")
	next, cmd := m.reload()
	return next, tea.Batch(cmd, rearm)
}

func (m *Model) leaveStdinMode() {
	m.stdinMode = false
	m.stdinRunID = ""
	m.stdinPrompt = ""
	m.input.Prompt = m.cfg.Prompt
}
