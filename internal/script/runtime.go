// Package script runs Go source files inside the yaegi interpreter and plugs
// them into a bridge.Bridge as its Runtime.
package script

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"path"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/traefik/yaegi/stdlib/unrestricted"
	"go.uber.org/zap"

	"scriptterm/internal/bridge"
)

// Package set names accepted by WithPackages.
const (
	PackagesStdlib       = "stdlib"
	PackagesUnrestricted = "unrestricted"
)

// entryName is the function every script exports.
const entryName = "Main"

var errNotBootstrapped = errors.New("runtime not bootstrapped")

// KnownPackageSet reports whether name is a package set the runtime can install.
func KnownPackageSet(name string) bool {
	_, ok := packageSets[name]
	return ok
}

var packageSets = map[string]interp.Exports{
	PackagesStdlib:       stdlib.Symbols,
	PackagesUnrestricted: unrestricted.Symbols,
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger that receives script diagnostics and stderr.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPackages selects the package sets installed into every interpreter.
func WithPackages(sets ...string) Option {
	return func(r *Runtime) {
		if len(sets) > 0 {
			r.packages = append([]string(nil), sets...)
		}
	}
}

// Runtime is a yaegi-backed bridge.Runtime. Only one interpreter is current
// at a time; each successful Define replaces it.
type Runtime struct {
	logger   *zap.Logger
	packages []string

	stdout *outputSink
	stdin  *inputSource
	stderr *logSink

	mu        sync.RWMutex
	console   bridge.Console
	run       *runState
	symbols   []interp.Exports
	available map[string]bool
	interp    *interp.Interpreter
}

// New creates an un-bootstrapped Runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		logger:   zap.NewNop(),
		packages: []string{PackagesStdlib},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.stdout = &outputSink{rt: r}
	r.stdin = &inputSource{rt: r}
	r.stderr = &logSink{logger: r.logger}
	return r
}

// Bootstrap resolves the configured package sets and creates the first
// interpreter.
func (r *Runtime) Bootstrap(ctx context.Context, progress func(string)) error {
	progress("Creating interpreter")

	var symbols []interp.Exports
	for _, name := range r.packages {
		if err := ctx.Err(); err != nil {
			return err
		}
		set, ok := packageSets[name]
		if !ok {
			return fmt.Errorf("unknown package set %q", name)
		}
		progress(fmt.Sprintf("Installing %s packages", name))
		symbols = append(symbols, set)
	}
	progress("Installing terminal package")
	symbols = append(symbols, r.exports())

	available := make(map[string]bool)
	for _, set := range symbols {
		for key := range set {
			available[path.Dir(key)] = true
		}
	}

	i, err := r.newInterpreter(symbols)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.symbols = symbols
	r.available = available
	r.interp = i
	r.mu.Unlock()

	r.logger.Debug("interpreter ready",
		zap.Strings("package_sets", r.packages),
		zap.Int("packages", len(available)))
	return nil
}

func (r *Runtime) unrestricted() bool {
	for _, name := range r.packages {
		if name == PackagesUnrestricted {
			return true
		}
	}
	return false
}

func (r *Runtime) newInterpreter(symbols []interp.Exports) (*interp.Interpreter, error) {
	i := interp.New(interp.Options{
		Stdin:        r.stdin,
		Stdout:       r.stdout,
		Stderr:       r.stderr,
		Unrestricted: r.unrestricted(),
	})
	for _, set := range symbols {
		if err := i.Use(set); err != nil {
			return nil, fmt.Errorf("install packages: %w", err)
		}
	}
	// Installed after the stdlib so scripts cannot exit the host process or
	// reach its real standard streams.
	if err := i.Use(r.osOverrides()); err != nil {
		return nil, fmt.Errorf("install os overrides: %w", err)
	}
	return i, nil
}

// Define evaluates code in a fresh interpreter and resolves its Main entry.
// The current interpreter is replaced only on success.
func (r *Runtime) Define(name, code string) (mod bridge.Module, err error) {
	r.mu.RLock()
	symbols, available := r.symbols, r.available
	r.mu.RUnlock()
	if symbols == nil {
		return nil, errNotBootstrapped
	}

	pkg, err := checkSource(name, code, available)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = pkg
	}

	i, err := r.newInterpreter(symbols)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			mod, err = nil, fmt.Errorf("evaluate %s: panic: %v", name, rec)
		}
	}()
	if _, err := i.Eval(code); err != nil {
		return nil, evalError(name, err)
	}
	v, err := i.Eval(pkg + "." + entryName)
	if err != nil {
		return nil, fmt.Errorf("%s.%s not found: %w", pkg, entryName, err)
	}
	entry, err := resolveEntry(v)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.interp = i
	r.mu.Unlock()
	r.logger.Debug("script defined", zap.String("name", name), zap.String("package", pkg))
	return &module{rt: r, name: name, entry: entry}, nil
}

// evalError describes a failed evaluation. A panic raised while the package
// initializes, including an exit request, is reported by its value.
func evalError(name string, err error) error {
	var p interp.Panic
	if !errors.As(err, &p) {
		return err
	}
	if v, ok := p.Value.(reflect.Value); ok && v.IsValid() && v.CanInterface() {
		p.Value = v.Interface()
	}
	if sig, ok := p.Value.(exitSignal); ok {
		return fmt.Errorf("evaluate %s: exit status %d during initialization", name, sig.code)
	}
	return fmt.Errorf("evaluate %s: panic: %v", name, p.Value)
}

// checkSource returns the package name of code after verifying that every
// import is one the interpreter provides.
func checkSource(name, code string, available map[string]bool) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), name, code, parser.ImportsOnly)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return "", err
		}
		if !available[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("unavailable imports: %s", strings.Join(missing, ", "))
	}
	return f.Name.Name, nil
}

func resolveEntry(v reflect.Value) (func([]string) error, error) {
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", entryName)
	}
	switch fn := v.Interface().(type) {
	case func([]string) error:
		return fn, nil
	case func([]string):
		return func(args []string) error {
			fn(args)
			return nil
		}, nil
	case func([]string) int:
		return func(args []string) error {
			if code := fn(args); code != bridge.ExitOK {
				return &bridge.ExitError{Code: code}
			}
			return nil
		}, nil
	}
	return nil, fmt.Errorf("%s has type %s, want func([]string) error", entryName, v.Type())
}

// Intercept routes script output and input to c until release is called.
func (r *Runtime) Intercept(c bridge.Console) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.console != nil {
		return nil, errors.New("console already intercepted")
	}
	r.console = c
	r.stdin.reset()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if r.console == c {
				r.console = nil
			}
			r.mu.Unlock()
		})
	}, nil
}

func (r *Runtime) setRun(s *runState) {
	r.mu.Lock()
	r.run = s
	r.mu.Unlock()
}

func (r *Runtime) currentRun() *runState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.run
}

func (r *Runtime) activeConsole() bridge.Console {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.console
}

var _ bridge.Runtime = (*Runtime)(nil)
