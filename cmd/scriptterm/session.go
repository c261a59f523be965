package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
	"golang.org/x/sync/errgroup"

	"scriptterm/internal/bridge"
	"scriptterm/internal/config"
	"scriptterm/internal/logging"
	"scriptterm/internal/protocol"
	"scriptterm/internal/script"
	"scriptterm/internal/source"
)

// childStopGrace bounds how long a bridge child may take to exit after it
// has been interrupted.
const childStopGrace = 2 * time.Second

func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func newBridge(c *config.Config, logs *logging.Logs) *bridge.Bridge {
	rt := script.New(
		script.WithLogger(logs.Get(logging.CategoryRuntime)),
		script.WithPackages(c.Runtime.Packages...),
	)
	return bridge.New(rt,
		bridge.WithLogger(logs.Get(logging.CategoryBridge)),
		bridge.WithBuffers(c.Bridge.InboxSize, c.Bridge.EventBuffer),
	)
}

func newFetcher(c *config.Config, logs *logging.Logs) *source.Fetcher {
	return source.NewFetcher(
		source.WithLogger(logs.Get(logging.CategorySource)),
		source.WithTimeout(c.Script.GetFetchTimeout()),
	)
}

// startBridge starts the bridge the configuration asks for and registers its
// lifetime with g. The bridge stops when ctx is done.
func startBridge(ctx context.Context, g *errgroup.Group, c *config.Config, logs *logging.Logs) (protocol.Endpoint, error) {
	if !c.Bridge.Isolated {
		b := newBridge(c, logs)
		g.Go(func() error { return b.Serve(ctx) })
		return b, nil
	}

	child, err := spawnBridge(ctx, c, logs.Get(logging.CategoryBridge))
	if err != nil {
		return nil, err
	}
	g.Go(child.wait)
	return child.client, nil
}

// childBridge is a `scriptterm bridge` process reached over its stdio.
type childBridge struct {
	ctx    context.Context
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	client *protocol.Client
	logger *zap.Logger
	stderr *zapio.Writer
}

func spawnBridge(ctx context.Context, c *config.Config, logger *zap.Logger) (*childBridge, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	args := []string{"bridge", "--config", configPath}
	if verbose {
		args = append(args, "--verbose")
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = childStopGrace

	// The child logs to stderr; keep it off the terminal.
	stderr := &zapio.Writer{Log: logger.Named("child"), Level: zap.WarnLevel}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("bridge stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("bridge stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start bridge: %w", err)
	}
	logger.Info("bridge child started", zap.Int("pid", cmd.Process.Pid))

	return &childBridge{
		ctx:    ctx,
		cmd:    cmd,
		stdin:  stdin,
		client: protocol.NewClient(stdout, stdin, c.Bridge.EventBuffer),
		logger: logger,
		stderr: stderr,
	}, nil
}

// wait reaps the child. Exits caused by our own cancellation are not errors.
func (c *childBridge) wait() error {
	err := c.cmd.Wait()
	_ = c.stdin.Close()
	_ = c.stderr.Close()
	if perr := c.client.Err(); perr != nil {
		c.logger.Warn("bridge protocol error", zap.Error(perr))
	}
	switch {
	case err == nil:
		return nil
	case c.ctx.Err() != nil:
		c.logger.Debug("bridge child stopped", zap.Error(err))
		return nil
	}
	return fmt.Errorf("bridge process: %w", err)
}

// serveBridge exposes a bridge over a byte stream until ctx is done or the
// stream fails.
func serveBridge(ctx context.Context, c *config.Config, logs *logging.Logs, in io.Reader, out io.Writer) error {
	b := newBridge(c, logs)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Serve(gctx) })
	g.Go(func() error {
		err := protocol.Serve(gctx, b, in, out)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
