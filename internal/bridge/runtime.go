package bridge

import "context"

// Runtime is the embedded interpreter owned by a Bridge. Implementations are
// not required to be safe for concurrent use; the Bridge never overlaps calls
// that touch interpreter state.
type Runtime interface {
	// Bootstrap prepares the interpreter and its package sets. progress is
	// called with a short description of each step.
	Bootstrap(ctx context.Context, progress func(step string)) error

	// Define evaluates code as a named module and resolves its entry point.
	// A failed Define must leave the runtime usable for another attempt.
	Define(name, code string) (Module, error)

	// Intercept routes the runtime's print and input primitives to c until
	// release is called. On error nothing stays installed.
	Intercept(c Console) (release func(), err error)
}

// Module is a loaded script whose entry point can be invoked repeatedly.
type Module interface {
	Name() string
	// Run invokes the entry point. Graceful exits, interrupts and end of
	// input are reported with ExitError, ErrInterrupted and ErrEndOfInput.
	Run(args []string) error
}

// Console is what a running script talks to while intercepted.
type Console interface {
	// Print forwards one chunk of emitted text unchanged.
	Print(text string)
	// Input blocks until the controller answers with a line.
	Input(prompt string) (string, error)
}
