package bridge

import (
	"context"
	"errors"
	"sync"
)

// scriptFunc is the behavior of a fake module; c is the installed console.
type scriptFunc func(c Console, args []string) error

// fakeRuntime stands in for the interpreter. Scripts are looked up by their
// "source" text so tests can load behaviors through the real protocol.
type fakeRuntime struct {
	mu sync.Mutex

	bootErr       error
	bootSteps     []string
	interceptErrs []error // consumed one per Intercept call
	scripts       map[string]scriptFunc

	console  Console
	installs int
	releases int
	active   int
	overlap  bool
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{scripts: make(map[string]scriptFunc)}
}

func (f *fakeRuntime) Bootstrap(ctx context.Context, progress func(string)) error {
	for _, step := range f.bootSteps {
		progress(step)
	}
	return f.bootErr
}

func (f *fakeRuntime) Define(name, code string) (Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.scripts[code]
	if !ok {
		return nil, errors.New("syntax error: " + code)
	}
	if name == "" {
		name = "main"
	}
	return &fakeModule{rt: f, name: name, fn: fn}, nil
}

func (f *fakeRuntime) Intercept(c Console) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.interceptErrs) > 0 {
		err := f.interceptErrs[0]
		f.interceptErrs = f.interceptErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.console != nil {
		f.overlap = true
	}
	f.console = c
	f.installs++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.console = nil
		f.releases++
	}, nil
}

func (f *fakeRuntime) installed() Console {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.console
}

func (f *fakeRuntime) counts() (installs, releases int, overlap bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.installs, f.releases, f.overlap
}

type fakeModule struct {
	rt   *fakeRuntime
	name string
	fn   scriptFunc
}

func (m *fakeModule) Name() string { return m.name }

func (m *fakeModule) Run(args []string) error {
	m.rt.mu.Lock()
	m.rt.active++
	if m.rt.active > 1 {
		m.rt.overlap = true
	}
	m.rt.mu.Unlock()
	defer func() {
		m.rt.mu.Lock()
		m.rt.active--
		m.rt.mu.Unlock()
	}()

	c := m.rt.installed()
	if c == nil {
		return errors.New("no console installed")
	}
	return m.fn(c, args)
}
