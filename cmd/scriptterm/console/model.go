package console

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"scriptterm/cmd/scriptterm/ui"
	"scriptterm/internal/command"
	"scriptterm/internal/protocol"
)

// New creates the terminal model. The endpoint is usually an in-process
// bridge or a client connected to a bridge subprocess.
func New(ep protocol.Endpoint, cfg Config) (Model, error) {
	if ep == nil {
		return Model{}, errors.New("console: nil endpoint")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "$ "
	}
	if cfg.RunCommand == "" {
		cfg.RunCommand = "run"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Styles.Theme.Name == "" {
		cfg.Styles = ui.DefaultStyles()
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = uuid.NewString
	}

	registry, err := command.NewRegistry(builtins(cfg.RunCommand)...)
	if err != nil {
		return Model{}, err
	}

	ti := textinput.New()
	ti.Prompt = cfg.Prompt
	ti.PromptStyle = cfg.Styles.Prompt
	ti.TextStyle = cfg.Styles.UserInput
	ti.Placeholder = "type 'help' for commands"
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cfg.Styles.Spinner

	return Model{
		cfg:          cfg,
		styles:       cfg.Styles,
		logger:       cfg.Logger,
		endpoint:     ep,
		registry:     registry,
		history:      &command.History{},
		log:          newOutputLog(),
		input:        ti,
		viewport:     viewport.New(80, 20),
		spinner:      sp,
		runtimeState: protocol.StateUninitialized,
	}, nil
}

// Init starts the event pump and asks the bridge to bootstrap.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.waitForEvent(),
		m.waitForChange(),
		m.sendCmd(protocol.Init{}),
	)
}

// waitForEvent delivers the next bridge event. It is re-armed after every
// event so the stream is read one message at a time.
func (m Model) waitForEvent() tea.Cmd {
	events := m.endpoint.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return bridgeClosedMsg{}
		}
		return bridgeEventMsg{event: ev}
	}
}

func (m Model) waitForChange() tea.Cmd {
	changes := m.cfg.Changes
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return scriptChangedMsg{}
	}
}

// sendCmd delivers req off the update loop.
func (m Model) sendCmd(req protocol.Request) tea.Cmd {
	ep := m.endpoint
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := ep.Send(ctx, req); err != nil {
			return sendFailedMsg{req: req, err: err}
		}
		return nil
	}
}

func (m Model) fetchScript() tea.Cmd {
	fetch := m.cfg.Fetch
	return func() tea.Msg {
		if fetch == nil {
			return scriptFetchedMsg{err: errors.New("no script source configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		s, err := fetch(ctx)
		return scriptFetchedMsg{script: s, err: err}
	}
}

// reload fetches the script and hands it to the bridge.
func (m Model) reload() (Model, tea.Cmd) {
	m.pending = pendingLoad
	m.reloadQueued = false
	m.input.Blur()
	return m, m.fetchScript()
}

func (m Model) busy() bool {
	return m.pending != pendingNone
}

func (m *Model) addLine(kind lineKind, text string) {
	m.log.add(kind, text)
	m.refresh()
}

func (m *Model) addChunk(text string) {
	m.log.appendChunk(text)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.log.render(m.styles, m.viewport.Width))
	m.viewport.GotoBottom()
}

// acceptInput re-enables the line editor after a run or load settles.
func (m *Model) acceptInput() tea.Cmd {
	m.pending = pendingNone
	m.activeRun = ""
	m.input.Reset()
	return m.input.Focus()
}
