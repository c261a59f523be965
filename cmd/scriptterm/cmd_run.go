package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scriptterm/internal/logging"
	"scriptterm/internal/protocol"
	"scriptterm/internal/source"
)

// errBridgeStopped reports an event stream that ended before the run did.
var errBridgeStopped = errors.New("bridge stopped before the run completed")

// runHeadless runs the script once with args, without the terminal UI.
func runHeadless(cmd *cobra.Command, args []string) error {
	logs, err := logging.Stderr(verbose)
	if err != nil {
		return err
	}
	defer logs.Close()
	boot := logs.Get(logging.CategoryBoot)

	ctx, stop := signal.NotifyContext(commandContext(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	script, err := newFetcher(cfg, logs).Fetch(ctx, cfg.Script.Location)
	if err != nil {
		return err
	}
	boot.Debug("script fetched", zap.String("name", script.Name), zap.String("location", script.Location))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	ep, err := startBridge(gctx, g, cfg, logs)
	if err != nil {
		return err
	}

	code := 0
	g.Go(func() error {
		defer cancel()
		var err error
		code, err = runOnce(gctx, ep, script, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

// runOnce drives one session over ep: bootstrap, load script, run it with
// args, and answer its prompts from in. It returns the run's exit code.
func runOnce(ctx context.Context, ep protocol.Endpoint, script source.Script, args []string,
	in io.Reader, out, errOut io.Writer) (int, error) {
	if args == nil {
		args = []string{}
	}
	runID := uuid.NewString()
	input := bufio.NewReader(in)
	events := ep.Events()

	if err := ep.Send(ctx, protocol.Init{}); err != nil {
		return 1, fmt.Errorf("send init: %w", err)
	}

	loaded := false
	for {
		var ev protocol.Event
		select {
		case <-ctx.Done():
			return 1, ctx.Err()
		case e, ok := <-events:
			if !ok {
				return 1, errBridgeStopped
			}
			ev = e
		}

		switch e := ev.(type) {
		case protocol.Status:
			if e.State == protocol.StateError {
				return 1, fmt.Errorf("runtime failed to start: %s", e.Message)
			}

		case protocol.Initialized:
			if err := ep.Send(ctx, protocol.LoadScript{Name: script.Name, Code: script.Code}); err != nil {
				return 1, fmt.Errorf("send script: %w", err)
			}

		case protocol.ScriptLoaded:
			loaded = true
			if err := ep.Send(ctx, protocol.Run{ID: runID, Args: args}); err != nil {
				return 1, fmt.Errorf("send run: %w", err)
			}

		case protocol.Error:
			if !loaded {
				return 1, errors.New(e.Message)
			}
			fmt.Fprintln(errOut, e.Message)

		case protocol.Output:
			if _, err := io.WriteString(out, e.Text); err != nil {
				return 1, err
			}

		case protocol.StdinRequest:
			resp := protocol.StdinResponse{RunID: e.RunID}
			if _, err := io.WriteString(out, e.Prompt); err != nil {
				return 1, err
			}
			line, err := input.ReadString('\n')
			switch {
			case err == nil, line != "":
				resp.Response = strings.TrimRight(line, "\r\n")
			case errors.Is(err, io.EOF):
				resp.EOF = true
			default:
				return 1, fmt.Errorf("read input: %w", err)
			}
			if err := ep.Send(ctx, resp); err != nil {
				return 1, fmt.Errorf("send input: %w", err)
			}

		case protocol.Complete:
			if e.RunID != runID {
				continue
			}
			if !e.Success && e.Error != "" {
				fmt.Fprintln(errOut, e.Error)
			}
			return e.ExitCode, nil
		}
	}
}
