// Package protocol defines the messages exchanged between the terminal
// controller and the runtime bridge. Requests flow controller→bridge, events
// flow bridge→controller. On the wire every message is one JSON object per
// line with a "type" discriminator.
package protocol

import "context"

// Type is the wire discriminator of a message.
type Type string

// Request types (controller → bridge).
const (
	TypeInit          Type = "init"
	TypeLoadScript    Type = "loadScript"
	TypeRun           Type = "run"
	TypeStdinResponse Type = "stdin_response"
)

// Event types (bridge → controller).
const (
	TypeStatus       Type = "status"
	TypeInitialized  Type = "initialized"
	TypeScriptLoaded Type = "scriptLoaded"
	TypeError        Type = "error"
	TypeOutput       Type = "output"
	TypeStdinRequest Type = "stdin_request"
	TypeComplete     Type = "complete"
)

// State is the lifecycle of the runtime owned by a bridge.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateError         State = "error"
)

// Request is a message sent to the bridge.
type Request interface {
	RequestType() Type
}

// Event is a message reported by the bridge.
type Event interface {
	EventType() Type
}

// Endpoint is one side of a bridge connection as seen by the controller.
// Send must not block for long; Events is closed when the peer goes away.
type Endpoint interface {
	Send(ctx context.Context, req Request) error
	Events() <-chan Event
}

// Init asks the bridge to bootstrap its runtime.
type Init struct{}

// LoadScript defines Code as a reusable module inside the runtime.
type LoadScript struct {
	Name string `json:"name,omitempty"`
	Code string `json:"code"`
}

// Run executes the loaded module's entry point with Args.
type Run struct {
	ID   string   `json:"id"`
	Args []string `json:"args"`
}

// StdinResponse answers a StdinRequest. EOF and Interrupt report that the
// user closed the input or interrupted the prompt instead of typing a line.
type StdinResponse struct {
	RunID     string `json:"runId,omitempty"`
	Response  string `json:"response"`
	EOF       bool   `json:"eof,omitempty"`
	Interrupt bool   `json:"interrupt,omitempty"`
}

func (Init) RequestType() Type          { return TypeInit }
func (LoadScript) RequestType() Type    { return TypeLoadScript }
func (Run) RequestType() Type           { return TypeRun }
func (StdinResponse) RequestType() Type { return TypeStdinResponse }

// Status reports a runtime lifecycle transition or bootstrap progress.
type Status struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
}

// Initialized reports that the runtime is ready for scripts.
type Initialized struct{}

// ScriptLoaded reports that a LoadScript succeeded.
type ScriptLoaded struct {
	Name string `json:"name,omitempty"`
}

// Error reports a failure that is not tied to a run, such as a load error or
// a request the bridge cannot accept.
type Error struct {
	Message string `json:"message"`
}

// Output is one chunk of text emitted by a running script, unmodified.
type Output struct {
	RunID string `json:"runId,omitempty"`
	Text  string `json:"text"`
}

// StdinRequest asks the controller for one line of input.
type StdinRequest struct {
	RunID  string `json:"runId"`
	Prompt string `json:"prompt"`
}

// Complete ends a run. ExitCode is always set; Error carries the fault
// message for failed runs.
type Complete struct {
	RunID    string `json:"runId,omitempty"`
	Success  bool   `json:"success"`
	ExitCode int    `json:"exitCode"`
	Error    string `json:"error,omitempty"`
}

func (Status) EventType() Type       { return TypeStatus }
func (Initialized) EventType() Type  { return TypeInitialized }
func (ScriptLoaded) EventType() Type { return TypeScriptLoaded }
func (Error) EventType() Type        { return TypeError }
func (Output) EventType() Type       { return TypeOutput }
func (StdinRequest) EventType() Type { return TypeStdinRequest }
func (Complete) EventType() Type     { return TypeComplete }
