package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scriptterm/internal/protocol"
)

// View renders the terminal: header and divider, then the transcript, the
// input line and the status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.styles.RenderDivider(m.viewport.Width),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render("scriptterm")
	script := "no script"
	if m.scriptLoaded {
		script = m.scriptName
	}
	return title + " " + m.styles.Muted.Render(script)
}

func (m Model) renderInput() string {
	if m.busy() && !m.stdinMode {
		return m.spinner.View() + " " + m.styles.Muted.Render(m.pending.String()+"...")
	}
	return m.input.View()
}

func (m Model) renderStatusBar() string {
	parts := []string{m.styles.Badge.Render(strings.ToUpper(string(m.runtimeState)))}
	switch {
	case m.stdinMode:
		parts = append(parts, "waiting for input (ctrl+d: end of input, ctrl+c: interrupt)")
	case m.pending == pendingRun:
		parts = append(parts, fmt.Sprintf("run %s", shortID(m.activeRun)))
	case m.runtimeState == protocol.StateLoading && m.statusMessage != "":
		parts = append(parts, m.statusMessage)
	default:
		parts = append(parts, "tab: complete  ↑/↓: history  pgup/pgdn: scroll  ctrl+c: quit")
	}
	bar := m.styles.StatusBar.Render(strings.Join(parts, " "))
	if m.width > 0 {
		bar = lipgloss.NewStyle().MaxWidth(m.width).Render(bar)
	}
	return bar
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
