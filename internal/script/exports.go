package script

import (
	"fmt"
	"io"
	"reflect"
	"runtime"

	"github.com/traefik/yaegi/interp"
	"go.uber.org/zap"

	"scriptterm/internal/bridge"
)

// exitSignal unwinds a script that asked to terminate outside a run.
type exitSignal struct {
	code int
}

// osOverrides replaces the process-level os symbols. The streams are bound
// to the interpreter's sinks even though they are not files, so a script that
// reads os.Stdin or writes os.Stdout reaches the intercepted console. Each
// interpreter gets its own variables; a script that reassigns os.Stdout only
// affects itself.
func (r *Runtime) osOverrides() interp.Exports {
	var (
		stdin  io.Reader = r.stdin
		stdout io.Writer = r.stdout
		stderr io.Writer = r.stderr
	)
	return interp.Exports{
		"os/os": {
			"Exit":   reflect.ValueOf(r.exit),
			"Stdin":  reflect.ValueOf(&stdin).Elem(),
			"Stdout": reflect.ValueOf(&stdout).Elem(),
			"Stderr": reflect.ValueOf(&stderr).Elem(),
		},
	}
}

// exports is the "terminal" package visible to scripts:
//
//	import "terminal"
//
//	terminal.Println("hello")
//	name, err := terminal.Input("Name? ")
//	terminal.Go(func() { terminal.Println("from a goroutine") })
//	terminal.Exit(2)
func (r *Runtime) exports() interp.Exports {
	return interp.Exports{
		"terminal/terminal": {
			"Print":          reflect.ValueOf(r.print),
			"Println":        reflect.ValueOf(r.println),
			"Printf":         reflect.ValueOf(r.printf),
			"Input":          reflect.ValueOf(r.input),
			"Go":             reflect.ValueOf(r.spawn),
			"Exit":           reflect.ValueOf(r.exit),
			"ErrEndOfInput":  reflect.ValueOf(&bridge.ErrEndOfInput).Elem(),
			"ErrInterrupted": reflect.ValueOf(&bridge.ErrInterrupted).Elem(),
		},
	}
}

func (r *Runtime) print(a ...any) {
	r.stdout.emit(fmt.Sprint(a...))
}

func (r *Runtime) println(a ...any) {
	r.stdout.emit(fmt.Sprintln(a...))
}

func (r *Runtime) printf(format string, a ...any) {
	r.stdout.emit(fmt.Sprintf(format, a...))
}

func (r *Runtime) input(prompt string) (string, error) {
	c := r.activeConsole()
	if c == nil {
		return "", bridge.ErrEndOfInput
	}
	return c.Input(prompt)
}

// exit ends the current run with code from whichever goroutine calls it.
// Outside a run, for example in a package initializer, it unwinds the caller.
func (r *Runtime) exit(code int) {
	run := r.currentRun()
	if run == nil {
		panic(exitSignal{code: code})
	}
	run.finish(&bridge.ExitError{Code: code})
	runtime.Goexit()
}

// spawn starts fn on a goroutine owned by the current run. The run does not
// complete until fn returns, and a panic in fn fails the run instead of the
// host process.
func (r *Runtime) spawn(fn func()) {
	run := r.currentRun()
	if run != nil {
		run.group.Add(1)
	}
	go func() {
		if run != nil {
			defer run.group.Done()
		}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if run == nil {
				r.logger.Error("script goroutine panicked outside a run", zap.Any("panic", rec))
				return
			}
			run.fail(rec)
		}()
		fn()
	}()
}
