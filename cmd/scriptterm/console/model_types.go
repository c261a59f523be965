// Package console is the interactive terminal controller: command registry,
// line editing, history, tab completion and the output log, talking to the
// runtime bridge only through a protocol.Endpoint.
package console

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"scriptterm/cmd/scriptterm/ui"
	"scriptterm/internal/command"
	"scriptterm/internal/protocol"
	"scriptterm/internal/source"
)

const (
	sendTimeout  = 2 * time.Second
	fetchTimeout = time.Minute
)

// FetchFunc retrieves the configured script source.
type FetchFunc func(ctx context.Context) (source.Script, error)

// Config holds configuration for initializing the terminal.
type Config struct {
	Prompt         string
	RunCommand     string // name of the command that runs the script
	ScriptLocation string // shown by the status command
	Styles         ui.Styles
	Logger         *zap.Logger
	Fetch          FetchFunc
	Changes        <-chan struct{} // script change notifications, optional
	NewRunID       func() string
}

// pending is what the controller is waiting on while input is disabled.
type pending int

const (
	pendingNone pending = iota
	pendingLoad         // fetching or loading the script
	pendingRun          // a run is queued or executing
)

func (p pending) String() string {
	switch p {
	case pendingLoad:
		return "loading"
	case pendingRun:
		return "running"
	}
	return "idle"
}

// action is a command body. It receives the text after the command name.
type action func(m Model, args string) (Model, tea.Cmd)

// =============================================================================
// MESSAGES
// =============================================================================

type bridgeEventMsg struct {
	event protocol.Event
}

type bridgeClosedMsg struct{}

type scriptFetchedMsg struct {
	script source.Script
	err    error
}

type scriptChangedMsg struct{}

type sendFailedMsg struct {
	req protocol.Request
	err error
}

// Model is the bubbletea model of the terminal.
type Model struct {
	cfg      Config
	styles   ui.Styles
	logger   *zap.Logger
	endpoint protocol.Endpoint
	registry *command.Registry[action]
	history  *command.History
	log      *outputLog

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int

	// Runtime as reported by the bridge
	runtimeState  protocol.State
	statusMessage string
	runtimeReady  bool
	scriptName    string
	scriptLoaded  bool

	// Input gating
	pending      pending
	activeRun    string
	reloadQueued bool

	// Stdin mode
	stdinMode   bool
	stdinRunID  string
	stdinPrompt string

	quitting bool
}
