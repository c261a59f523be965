package bridge

import (
	"errors"
	"fmt"

	"scriptterm/internal/protocol"
)

// Conventional exit codes reported in Complete events.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitEndOfInput  = 1
	ExitInterrupted = 130
)

var (
	// ErrEndOfInput is raised by Console.Input when no more input will come.
	ErrEndOfInput = errors.New("EOF when reading a line")
	// ErrInterrupted is raised when the user interrupts an input prompt.
	ErrInterrupted = errors.New("interrupted")
	// ErrClosed is returned by Send once the bridge has shut down.
	ErrClosed = errors.New("bridge closed")
)

// ExitError is a graceful termination requested by the script.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// completion maps the result of a run to its Complete event.
func completion(runID string, err error) protocol.Complete {
	c := protocol.Complete{RunID: runID}

	var exit *ExitError
	switch {
	case err == nil:
		c.Success = true
		c.ExitCode = ExitOK
	case errors.As(err, &exit):
		c.Success = exit.Code == ExitOK
		c.ExitCode = exit.Code
	case errors.Is(err, ErrInterrupted):
		c.ExitCode = ExitInterrupted
		c.Error = err.Error()
	case errors.Is(err, ErrEndOfInput):
		c.ExitCode = ExitEndOfInput
		c.Error = err.Error()
	default:
		c.ExitCode = ExitFailure
		c.Error = err.Error()
	}
	return c
}

// failedRun reports a run that never reached the runtime.
func failedRun(runID, msg string) protocol.Complete {
	return protocol.Complete{RunID: runID, ExitCode: ExitFailure, Error: msg}
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
