package bridge

import (
	"sync"
	"sync/atomic"

	"scriptterm/internal/protocol"
)

// runConsole is the Console of one active run. Output becomes Output events;
// Input performs the stdin_request / stdin_response round trip.
type runConsole struct {
	b     *Bridge
	runID string

	inputMu   sync.Mutex // one outstanding prompt per run
	awaiting  atomic.Bool
	responses chan protocol.StdinResponse
}

func newRunConsole(b *Bridge, runID string) *runConsole {
	return &runConsole{
		b:         b,
		runID:     runID,
		responses: make(chan protocol.StdinResponse, 1),
	}
}

func (c *runConsole) Print(text string) {
	if text == "" {
		return
	}
	c.b.emit(protocol.Output{RunID: c.runID, Text: text})
}

func (c *runConsole) Input(prompt string) (string, error) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()

	// Drop a late duplicate answer to a previous prompt.
	select {
	case <-c.responses:
	default:
	}

	c.awaiting.Store(true)
	defer c.awaiting.Store(false)

	c.b.emit(protocol.StdinRequest{RunID: c.runID, Prompt: prompt})

	select {
	case resp := <-c.responses:
		switch {
		case resp.Interrupt:
			return "", ErrInterrupted
		case resp.EOF:
			return "", ErrEndOfInput
		}
		return resp.Response, nil
	case <-c.b.done:
		return "", ErrEndOfInput
	}
}

// deliver hands resp to a waiting Input call. It reports false when no prompt
// is outstanding.
func (c *runConsole) deliver(resp protocol.StdinResponse) bool {
	if !c.awaiting.Load() {
		return false
	}
	select {
	case c.responses <- resp:
		return true
	default:
		return false
	}
}
