package script

import (
	"reflect"
	"sync"

	"scriptterm/internal/bridge"
)

// module is a defined script whose entry point is reused across runs.
type module struct {
	rt    *Runtime
	name  string
	entry func([]string) error
}

func (m *module) Name() string { return m.name }

// Run calls the entry point on its own goroutine and waits for the first
// outcome: the entry returning after its terminal.Go goroutines, a graceful
// exit from any goroutine, or a panic. Exits are reported as a
// *bridge.ExitError; panics are re-raised on the caller's goroutine.
func (m *module) Run(args []string) error {
	if args == nil {
		args = []string{}
	}
	run := newRunState()
	m.rt.setRun(run)
	defer m.rt.setRun(nil)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				run.fail(rec)
			}
		}()
		err := m.entry(args)
		run.group.Wait()
		run.finish(err)
	}()

	out := <-run.result
	if out.panicked {
		panic(out.value)
	}
	return out.err
}

// runState is one execution of a module.
type runState struct {
	once   sync.Once
	result chan runResult
	group  sync.WaitGroup
}

type runResult struct {
	err      error
	panicked bool
	value    any
}

func newRunState() *runState {
	return &runState{result: make(chan runResult, 1)}
}

func (s *runState) finish(err error) {
	s.once.Do(func() { s.result <- runResult{err: err} })
}

func (s *runState) fail(rec any) {
	// Interpreted panics carry the script's value wrapped.
	if v, ok := rec.(reflect.Value); ok && v.IsValid() && v.CanInterface() {
		rec = v.Interface()
	}
	if sig, ok := rec.(exitSignal); ok {
		s.finish(&bridge.ExitError{Code: sig.code})
		return
	}
	s.once.Do(func() { s.result <- runResult{panicked: true, value: rec} })
}
