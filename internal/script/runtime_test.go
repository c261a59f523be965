package script

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"scriptterm/internal/bridge"
)

// recordingConsole captures output and answers prompts from a script of
// canned responses. Running out of answers reads as end of input.
type recordingConsole struct {
	mu      sync.Mutex
	out     []string
	prompts []string
	answers []string
	failAll error
}

func (c *recordingConsole) Print(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, text)
}

func (c *recordingConsole) Input(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.failAll != nil {
		return "", c.failAll
	}
	if len(c.answers) == 0 {
		return "", bridge.ErrEndOfInput
	}
	a := c.answers[0]
	c.answers = c.answers[1:]
	return a, nil
}

func bootstrapped(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt := New(opts...)
	require.NoError(t, rt.Bootstrap(context.Background(), func(string) {}))
	return rt
}

func define(t *testing.T, rt *Runtime, code string) bridge.Module {
	t.Helper()
	mod, err := rt.Define("demo", code)
	require.NoError(t, err)
	return mod
}

func runWith(t *testing.T, rt *Runtime, mod bridge.Module, c bridge.Console, args ...string) error {
	t.Helper()
	release, err := rt.Intercept(c)
	require.NoError(t, err)
	defer release()
	return mod.Run(args)
}

func TestBootstrap_ReportsSteps(t *testing.T) {
	var steps []string
	rt := New(WithPackages(PackagesStdlib))
	require.NoError(t, rt.Bootstrap(context.Background(), func(s string) { steps = append(steps, s) }))
	assert.Equal(t, []string{
		"Creating interpreter",
		"Installing stdlib packages",
		"Installing terminal package",
	}, steps)
}

func TestBootstrap_UnknownPackageSet(t *testing.T) {
	rt := New(WithPackages("stdlib", "everything"))
	err := rt.Bootstrap(context.Background(), func(string) {})
	assert.ErrorContains(t, err, `unknown package set "everything"`)

	_, err = rt.Define("demo", "package demo\n")
	assert.ErrorIs(t, err, errNotBootstrapped)
}

func TestBootstrap_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().Bootstrap(ctx, func(string) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKnownPackageSet(t *testing.T) {
	assert.True(t, KnownPackageSet("stdlib"))
	assert.True(t, KnownPackageSet("unrestricted"))
	assert.False(t, KnownPackageSet("net"))
}

func TestRun_OutputChunksInOrder(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import (
	"fmt"
	"strings"
	"terminal"
)

func Main(args []string) error {
	fmt.Print("a")
	fmt.Println("b")
	terminal.Printf("%d args\n", len(args))
	terminal.Println(strings.Join(args, "|"))
	terminal.Print("")
	return nil
}
`)
	c := &recordingConsole{}
	require.NoError(t, runWith(t, rt, mod, c, "x", "y z"))
	assert.Equal(t, []string{"a", "b\n", "2 args\n", "x|y z\n"}, c.out)
}

func TestRun_ModuleIsReused(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import "fmt"

var calls int

func Main(args []string) {
	calls++
	fmt.Println(calls)
}
`)
	c := &recordingConsole{}
	require.NoError(t, runWith(t, rt, mod, c))
	require.NoError(t, runWith(t, rt, mod, c))
	assert.Equal(t, []string{"1\n", "2\n"}, c.out)
}

func TestRun_Input(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import (
	"bufio"
	"fmt"
	"os"
	"terminal"
)

func Main(args []string) error {
	name, err := terminal.Input("Name? ")
	if err != nil {
		return err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Printf("%s likes %s", name, line)
	return nil
}
`)
	c := &recordingConsole{answers: []string{"Ada", "engines"}}
	require.NoError(t, runWith(t, rt, mod, c))
	assert.Equal(t, []string{"Name? ", ""}, c.prompts)
	assert.Equal(t, []string{"Ada likes engines\n"}, c.out)
}

func TestRun_InputFaults(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import "terminal"

func Main(args []string) error {
	_, err := terminal.Input("> ")
	return err
}
`)
	err := runWith(t, rt, mod, &recordingConsole{})
	assert.ErrorIs(t, err, bridge.ErrEndOfInput)

	err = runWith(t, rt, mod, &recordingConsole{failAll: bridge.ErrInterrupted})
	assert.ErrorIs(t, err, bridge.ErrInterrupted)
}

func TestRun_ScriptCanCompareInputErrors(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import (
	"errors"
	"terminal"
)

func Main(args []string) int {
	_, err := terminal.Input("> ")
	if errors.Is(err, terminal.ErrEndOfInput) {
		terminal.Println("bye")
		return 0
	}
	return 9
}
`)
	c := &recordingConsole{}
	require.NoError(t, runWith(t, rt, mod, c))
	assert.Equal(t, []string{"bye\n"}, c.out)
}

func TestRun_ExitCodes(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import (
	"fmt"
	"os"
	"strconv"
	"terminal"
)

func Main(args []string) int {
	code, _ := strconv.Atoi(args[1])
	switch args[0] {
	case "terminal":
		fmt.Println("before")
		terminal.Exit(code)
		fmt.Println("after")
	case "os":
		os.Exit(code)
	}
	return code
}
`)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"terminal exit", []string{"terminal", "2"}, 2},
		{"terminal exit zero", []string{"terminal", "0"}, 0},
		{"os exit", []string{"os", "3"}, 3},
		{"return code", []string{"return", "4"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &recordingConsole{}
			err := runWith(t, rt, mod, c, tt.args...)
			var exit *bridge.ExitError
			require.True(t, errors.As(err, &exit), "got %v", err)
			assert.Equal(t, tt.code, exit.Code)
			if tt.args[0] == "terminal" {
				assert.Equal(t, []string{"before\n"}, c.out)
			}
		})
	}

	err := runWith(t, rt, mod, &recordingConsole{}, "return", "0")
	assert.NoError(t, err)
}

func TestRun_PanicPropagates(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

func Main(args []string) {
	panic("boom")
}
`)
	release, err := rt.Intercept(&recordingConsole{})
	require.NoError(t, err)
	assert.Panics(t, func() { _ = mod.Run(nil) })
	release()

	// The runtime is still usable after a fault.
	_, err = rt.Intercept(&recordingConsole{})
	assert.NoError(t, err)
}

func TestRun_ReturnedError(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import "fmt"

func Main(args []string) error {
	return fmt.Errorf("need %d args, got %d", 2, len(args))
}
`)
	err := runWith(t, rt, mod, &recordingConsole{})
	assert.EqualError(t, err, "need 2 args, got 0")
}

func TestDefine_Failures(t *testing.T) {
	rt := bootstrapped(t)
	tests := []struct {
		name string
		code string
		want string
	}{
		{"syntax", "package demo\n\nfunc Main(args []string) {", ""},
		{"no package clause", "func Main() {}", "expected 'package'"},
		{"missing entry", "package demo\n\nfunc Run(args []string) {}\n", "demo.Main not found"},
		{"wrong signature", "package demo\n\nfunc Main() {}\n", "want func([]string) error"},
		{"unavailable import", "package demo\n\nimport \"github.com/acme/widgets\"\n\nfunc Main(args []string) {}\n", "unavailable imports: github.com/acme/widgets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Define("demo", tt.code)
			require.Error(t, err)
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}

	// A failed load leaves the runtime able to define the next script.
	mod := define(t, rt, "package demo\n\nfunc Main(args []string) {}\n")
	assert.NoError(t, runWith(t, rt, mod, &recordingConsole{}))
}

func TestDefine_NameDefaultsToPackage(t *testing.T) {
	rt := bootstrapped(t)
	mod, err := rt.Define("", "package catalog\n\nfunc Main(args []string) {}\n")
	require.NoError(t, err)
	assert.Equal(t, "catalog", mod.Name())
}

func TestDefine_UnrestrictedAllowsExec(t *testing.T) {
	rt := bootstrapped(t, WithPackages(PackagesStdlib, PackagesUnrestricted))
	_, err := rt.Define("demo", "package demo\n\nimport \"os/exec\"\n\nvar _ = exec.Command\n\nfunc Main(args []string) {}\n")
	assert.NoError(t, err)
}

func TestIntercept_ExclusiveAndReleased(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rt := bootstrapped(t, WithLogger(zap.New(core)))
	mod := define(t, rt, `package demo

import (
	"fmt"
	"terminal"
)

func Main(args []string) error {
	fmt.Println("hello")
	_, err := terminal.Input("? ")
	return err
}
`)

	first := &recordingConsole{}
	release, err := rt.Intercept(first)
	require.NoError(t, err)

	_, err = rt.Intercept(&recordingConsole{})
	assert.Error(t, err, "second interception while one is installed")

	assert.ErrorIs(t, mod.Run(nil), bridge.ErrEndOfInput)
	release()
	release()
	assert.Equal(t, []string{"hello\n"}, first.out)

	// Without an interception output is logged and input reports end of input.
	assert.ErrorIs(t, mod.Run(nil), bridge.ErrEndOfInput)
	assert.Equal(t, []string{"hello\n"}, first.out)
	entries := logs.FilterMessage("script output outside a run").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello\n", entries[0].ContextMap()["text"])
}

func TestStdinSourceResetsBetweenRuns(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import (
	"fmt"
	"os"
)

func Main(args []string) error {
	buf := make([]byte, 2)
	n, err := os.Stdin.Read(buf)
	if err != nil {
		return err
	}
	fmt.Print(string(buf[:n]))
	return nil
}
`)
	c := &recordingConsole{answers: []string{"abcdef", "xy"}}
	require.NoError(t, runWith(t, rt, mod, c))
	require.NoError(t, runWith(t, rt, mod, c))
	assert.Equal(t, []string{"ab", "xy"}, c.out)
}

func TestRun_OSStreamsReachConsole(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rt := bootstrapped(t, WithLogger(zap.New(core)))
	mod := define(t, rt, `package demo

import (
	"bufio"
	"fmt"
	"os"
)

func Main(args []string) error {
	fmt.Fprintln(os.Stdout, "via os.Stdout")
	fmt.Fprintln(os.Stderr, "via os.Stderr")
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		fmt.Fprintf(os.Stdout, "got %s\n", sc.Text())
	}
	return sc.Err()
}
`)
	c := &recordingConsole{answers: []string{"one", "two"}}
	require.NoError(t, runWith(t, rt, mod, c))

	assert.Equal(t, []string{"via os.Stdout\n", "got one\n", "got two\n"}, c.out)
	assert.Equal(t, []string{"", "", ""}, c.prompts, "one request per line until end of input")
	entries := logs.FilterMessage("script stderr").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "via os.Stderr", entries[0].ContextMap()["line"])
}

func TestRun_ExitFromGoroutine(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import (
	"errors"
	"terminal"
	"time"
)

func Main(args []string) error {
	switch args[0] {
	case "owned":
		terminal.Go(func() { terminal.Exit(4) })
		return nil
	default:
		go terminal.Exit(5)
		<-time.After(time.Second)
		return errors.New("exit not observed")
	}
}
`)
	tests := []struct {
		mode string
		code int
	}{
		{"owned", 4},
		{"plain", 5},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			err := runWith(t, rt, mod, &recordingConsole{}, tt.mode)
			var exit *bridge.ExitError
			require.True(t, errors.As(err, &exit), "got %v", err)
			assert.Equal(t, tt.code, exit.Code)
		})
	}
}

func TestRun_OwnedGoroutinesJoinTheRun(t *testing.T) {
	rt := bootstrapped(t)
	mod := define(t, rt, `package demo

import (
	"terminal"
	"time"
)

func Main(args []string) {
	terminal.Go(func() {
		time.Sleep(20 * time.Millisecond)
		if len(args) > 0 {
			panic(args[0])
		}
		terminal.Println("late")
	})
	terminal.Println("main done")
}
`)
	c := &recordingConsole{}
	require.NoError(t, runWith(t, rt, mod, c))
	assert.Equal(t, []string{"main done\n", "late\n"}, c.out)

	release, err := rt.Intercept(&recordingConsole{})
	require.NoError(t, err)
	defer release()
	assert.PanicsWithValue(t, "boom", func() { _ = mod.Run([]string{"boom"}) })
}

func TestDefine_ExitDuringInit(t *testing.T) {
	rt := bootstrapped(t)
	_, err := rt.Define("demo", `package demo

import "os"

var _ = quit()

func quit() int {
	os.Exit(2)
	return 0
}

func Main(args []string) {}
`)
	assert.EqualError(t, err, "evaluate demo: exit status 2 during initialization")
}
