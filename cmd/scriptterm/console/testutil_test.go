package console

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"scriptterm/cmd/scriptterm/ui"
	"scriptterm/internal/protocol"
	"scriptterm/internal/source"
)

// =============================================================================
// FAKE ENDPOINT
// =============================================================================

// fakeEndpoint records requests. Its event stream is closed so the event pump
// never blocks a test; events are fed to Update directly.
type fakeEndpoint struct {
	mu     sync.Mutex
	sent   []protocol.Request
	err    error
	events chan protocol.Event
}

func newFakeEndpoint() *fakeEndpoint {
	ch := make(chan protocol.Event)
	close(ch)
	return &fakeEndpoint{events: ch}
}

func (f *fakeEndpoint) Send(ctx context.Context, req protocol.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeEndpoint) Events() <-chan protocol.Event { return f.events }

func (f *fakeEndpoint) requests() []protocol.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Request, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeEndpoint) last() protocol.Request {
	reqs := f.requests()
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

func (f *fakeEndpoint) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// =============================================================================
// MODEL HELPERS
// =============================================================================

func testScript() source.Script {
	return source.Script{Name: "catalog", Location: "_scripts/catalog.go", Code: "package catalog"}
}

func newTestModel(t *testing.T, opts ...func(*Config)) (Model, *fakeEndpoint) {
	t.Helper()
	ep := newFakeEndpoint()
	ids := 0
	cfg := Config{
		Prompt:         "$ ",
		RunCommand:     "run",
		ScriptLocation: "_scripts/catalog.go",
		Styles:         ui.NewStyles(ui.MonoTheme()),
		Fetch: func(ctx context.Context) (source.Script, error) {
			return testScript(), nil
		},
		NewRunID: func() string {
			ids++
			return fmt.Sprintf("run-%d", ids)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	m, err := New(ep, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), ep
}

// readyModel returns a model whose runtime is ready and script loaded.
func readyModel(t *testing.T, opts ...func(*Config)) (Model, *fakeEndpoint) {
	t.Helper()
	m, ep := newTestModel(t, opts...)
	m, _ = pump(m, bridgeEventMsg{event: protocol.Initialized{}})
	m, _ = pump(m, bridgeEventMsg{event: protocol.ScriptLoaded{Name: "catalog"}})
	if !m.scriptLoaded || m.busy() {
		t.Fatalf("model not ready: loaded=%v pending=%v", m.scriptLoaded, m.pending)
	}
	return m, ep
}

// collect runs cmd and returns the messages it produces. Commands that do not
// finish promptly, such as cursor blinks, are abandoned.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// pump delivers msg and follows up fetch results and send failures, the way
// the program loop would. It returns every other produced message.
func pump(m Model, msg tea.Msg) (Model, []tea.Msg) {
	next, cmd := m.Update(msg)
	m = next.(Model)
	var rest []tea.Msg
	for _, out := range collect(cmd) {
		switch out.(type) {
		case scriptFetchedMsg, sendFailedMsg:
			var more []tea.Msg
			m, more = pump(m, out)
			rest = append(rest, more...)
		default:
			rest = append(rest, out)
		}
	}
	return m, rest
}

func event(m Model, ev protocol.Event) Model {
	m, _ = pump(m, bridgeEventMsg{event: ev})
	return m
}

func key(m Model, k tea.KeyType) (Model, []tea.Msg) {
	return pump(m, tea.KeyMsg{Type: k})
}

// submit types line into the editor and presses enter.
func submit(m Model, line string) (Model, []tea.Msg) {
	m.input.SetValue(line)
	return key(m, tea.KeyEnter)
}

func hasQuit(msgs []tea.Msg) bool {
	for _, msg := range msgs {
		if _, ok := msg.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}

func lastLines(m Model, n int) []string {
	lines := m.log.texts()
	if len(lines) < n {
		return lines
	}
	return lines[len(lines)-n:]
}
