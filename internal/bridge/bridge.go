// Package bridge owns the single scripting runtime of a session. A Bridge
// receives protocol requests, bootstraps the runtime, loads scripts as
// reusable modules and executes run requests strictly one at a time, in
// arrival order, streaming their output and input prompts back as events.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"scriptterm/internal/protocol"
)

const (
	defaultInboxSize  = 64
	defaultEventsSize = 256
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for bridge diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBuffers sets the capacity of the request inbox and the event stream.
func WithBuffers(inbox, events int) Option {
	return func(b *Bridge) {
		if inbox > 0 {
			b.inboxSize = inbox
		}
		if events > 0 {
			b.eventsSize = events
		}
	}
}

// activeRun is the run currently holding the runtime.
type activeRun struct {
	id      string
	console *runConsole
	started time.Time
}

// Bridge is a session object: it owns the runtime, the readiness state, the
// job queue and the active run. All fields below the channels are touched only
// by the dispatcher goroutine started by Serve.
type Bridge struct {
	runtime    Runtime
	logger     *zap.Logger
	inboxSize  int
	eventsSize int

	inbox    chan protocol.Request
	events   chan protocol.Event
	finished chan *activeRun
	done     chan struct{}
	doneOnce sync.Once
	workers  sync.WaitGroup
	serving  atomic.Bool

	stateMu sync.RWMutex
	state   protocol.State

	queue  jobQueue
	active *activeRun
	module Module
}

// New creates a Bridge around rt. Call Serve to start processing requests.
func New(rt Runtime, opts ...Option) *Bridge {
	b := &Bridge{
		runtime:    rt,
		logger:     zap.NewNop(),
		inboxSize:  defaultInboxSize,
		eventsSize: defaultEventsSize,
		state:      protocol.StateUninitialized,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.inbox = make(chan protocol.Request, b.inboxSize)
	b.events = make(chan protocol.Event, b.eventsSize)
	b.finished = make(chan *activeRun)
	b.done = make(chan struct{})
	return b
}

// Send queues req for the dispatcher.
func (b *Bridge) Send(ctx context.Context, req protocol.Request) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case b.inbox <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrClosed
	}
}

// Events returns the event stream. It is closed after Serve returns.
func (b *Bridge) Events() <-chan protocol.Event { return b.events }

// State returns the current runtime lifecycle state.
func (b *Bridge) State() protocol.State {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.state
}

func (b *Bridge) setState(s protocol.State) {
	b.stateMu.Lock()
	prev := b.state
	b.state = s
	b.stateMu.Unlock()
	b.logger.Debug("runtime state", zap.String("from", string(prev)), zap.String("to", string(s)))
}

// Serve runs the dispatcher until ctx is done. On return any prompt still
// waiting for input is answered with end of input, the active run is awaited,
// and the event stream is closed.
func (b *Bridge) Serve(ctx context.Context) error {
	if !b.serving.CompareAndSwap(false, true) {
		return errors.New("bridge: Serve called twice")
	}
	defer b.shutdown()

	// Unblock emitters and pending prompts as soon as the session ends.
	go func() {
		<-ctx.Done()
		b.doneOnce.Do(func() { close(b.done) })
	}()

	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("bridge stopping", zap.Int("queued", b.queue.len()))
			return nil
		case req := <-b.inbox:
			b.handle(ctx, req)
		case ar := <-b.finished:
			if b.active == ar {
				b.active = nil
			}
			b.drain()
		}
	}
}

func (b *Bridge) shutdown() {
	b.doneOnce.Do(func() { close(b.done) })
	b.workers.Wait()
	close(b.events)
}

func (b *Bridge) handle(ctx context.Context, req protocol.Request) {
	switch r := req.(type) {
	case protocol.Init:
		b.handleInit(ctx)
	case protocol.LoadScript:
		if !b.requireReady("load script") {
			return
		}
		b.queue.push(job{load: &r})
		b.drain()
	case protocol.Run:
		if b.State() != protocol.StateReady {
			b.emit(failedRun(r.ID, "runtime not ready"))
			return
		}
		b.queue.push(job{run: &r})
		b.drain()
	case protocol.StdinResponse:
		b.handleStdin(r)
	default:
		b.emit(protocol.Error{Message: fmt.Sprintf("unsupported request %T", req)})
	}
}

func (b *Bridge) requireReady(action string) bool {
	switch b.State() {
	case protocol.StateReady:
		return true
	case protocol.StateError:
		b.emit(protocol.Error{Message: fmt.Sprintf("cannot %s: runtime failed to initialize", action)})
	default:
		b.emit(protocol.Error{Message: fmt.Sprintf("cannot %s: runtime not ready", action)})
	}
	return false
}

func (b *Bridge) handleInit(ctx context.Context) {
	switch b.State() {
	case protocol.StateReady:
		b.emit(protocol.Initialized{})
		return
	case protocol.StateError:
		b.emit(protocol.Error{Message: "runtime failed to initialize; restart the session"})
		return
	}

	b.setState(protocol.StateLoading)
	b.emit(protocol.Status{State: protocol.StateLoading, Message: "Starting runtime..."})

	start := time.Now()
	err := b.runtime.Bootstrap(ctx, func(step string) {
		b.emit(protocol.Status{State: protocol.StateLoading, Message: step})
	})
	if err != nil {
		b.setState(protocol.StateError)
		b.logger.Error("bootstrap failed", zap.Error(err))
		b.emit(protocol.Status{State: protocol.StateError, Message: err.Error()})
		return
	}

	b.setState(protocol.StateReady)
	b.logger.Info("runtime ready", zap.Duration("took", time.Since(start)))
	b.emit(protocol.Status{State: protocol.StateReady, Message: "Runtime ready"})
	b.emit(protocol.Initialized{})
}

func (b *Bridge) handleStdin(resp protocol.StdinResponse) {
	ar := b.active
	if ar == nil {
		b.logger.Warn("stdin response with no active run", zap.String("run_id", resp.RunID))
		return
	}
	if resp.RunID != "" && resp.RunID != ar.id {
		b.logger.Warn("stdin response for another run",
			zap.String("run_id", resp.RunID), zap.String("active", ar.id))
		return
	}
	if !ar.console.deliver(resp) {
		b.logger.Warn("stdin response without outstanding prompt", zap.String("run_id", ar.id))
	}
}

// drain starts queued jobs until one run holds the runtime or the queue is
// empty. Loads run inline on the dispatcher because they never prompt.
func (b *Bridge) drain() {
	for b.active == nil {
		j, ok := b.queue.pop()
		if !ok {
			return
		}
		switch {
		case j.load != nil:
			b.load(*j.load)
		case j.run != nil:
			b.start(*j.run)
		}
	}
}

func (b *Bridge) load(req protocol.LoadScript) {
	mod, err := b.runtime.Define(req.Name, req.Code)
	if err != nil {
		b.logger.Warn("script load failed", zap.String("name", req.Name), zap.Error(err))
		b.emit(protocol.Error{Message: fmt.Sprintf("failed to load script: %v", err)})
		return
	}
	b.module = mod
	b.logger.Info("script loaded", zap.String("module", mod.Name()))
	b.emit(protocol.ScriptLoaded{Name: mod.Name()})
}

func (b *Bridge) start(run protocol.Run) {
	mod := b.module
	if mod == nil {
		b.emit(failedRun(run.ID, "no script loaded"))
		return
	}

	ar := &activeRun{id: run.ID, console: newRunConsole(b, run.ID), started: time.Now()}
	b.active = ar
	b.logger.Debug("run started", zap.String("run_id", run.ID), zap.Strings("args", run.Args))

	b.workers.Add(1)
	go func() {
		defer b.workers.Done()
		c := b.execute(ar, mod, run.Args)
		b.emit(c)
		select {
		case b.finished <- ar:
		case <-b.done:
		}
	}()
}

func (b *Bridge) execute(ar *activeRun, mod Module, args []string) protocol.Complete {
	err := b.withInterception(ar.console, func() error {
		return mod.Run(args)
	})
	c := completion(ar.id, err)
	b.logger.Debug("run complete",
		zap.String("run_id", ar.id),
		zap.Bool("success", c.Success),
		zap.Int("exit_code", c.ExitCode),
		zap.Duration("took", time.Since(ar.started)))
	return c
}

// withInterception installs c for the duration of fn. Release runs on every
// exit path, after a panic in fn has been converted to an error.
func (b *Bridge) withInterception(c Console, fn func() error) (err error) {
	release, err := b.runtime.Intercept(c)
	if err != nil {
		return fmt.Errorf("install interception: %w", err)
	}
	defer release()
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn()
}

func (b *Bridge) emit(ev protocol.Event) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}
