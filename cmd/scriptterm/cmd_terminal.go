package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scriptterm/cmd/scriptterm/console"
	"scriptterm/cmd/scriptterm/ui"
	"scriptterm/internal/config"
	"scriptterm/internal/logging"
	"scriptterm/internal/source"
)

func openFileLogs(c *config.Config) (*logging.Logs, error) {
	return logging.Open(logging.Config{
		Debug:      c.Logging.Debug,
		Level:      c.Logging.Level,
		Dir:        c.Logging.Dir,
		JSON:       c.Logging.JSON,
		Categories: c.Logging.Categories,
	})
}

// runTerminal starts the interactive terminal. The UI owns the screen, so
// logs only go to the debug log file.
func runTerminal(cmd *cobra.Command, _ []string) error {
	logs, err := openFileLogs(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logs.Close()
	boot := logs.Get(logging.CategoryBoot)

	theme, err := ui.ThemeByName(cfg.Terminal.Theme)
	if err != nil {
		return err
	}

	base, sigStop := signal.NotifyContext(commandContext(cmd.Context()), syscall.SIGTERM)
	defer sigStop()
	ctx, cancel := context.WithCancel(base)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	ep, err := startBridge(gctx, g, cfg, logs)
	if err != nil {
		return err
	}

	location := cfg.Script.Location
	var changes <-chan struct{}
	if cfg.Script.Watch {
		w, err := source.NewWatcher(location, logs.Get(logging.CategorySource))
		if err != nil {
			cancel()
			_ = g.Wait()
			return fmt.Errorf("watch script: %w", err)
		}
		if err := w.Start(gctx); err != nil {
			w.Stop()
			cancel()
			_ = g.Wait()
			return fmt.Errorf("watch script: %w", err)
		}
		defer w.Stop()
		changes = w.Changes()
	}

	fetcher := newFetcher(cfg, logs)
	model, err := console.New(ep, console.Config{
		Prompt:         cfg.Terminal.Prompt,
		RunCommand:     cfg.Terminal.RunCommand,
		ScriptLocation: location,
		Styles:         ui.NewStyles(theme),
		Logger:         logs.Get(logging.CategoryConsole),
		Fetch: func(ctx context.Context) (source.Script, error) {
			return fetcher.Fetch(ctx, location)
		},
		Changes: changes,
	})
	if err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	boot.Info("starting terminal",
		zap.String("script", location),
		zap.Bool("isolated", cfg.Bridge.Isolated),
		zap.Bool("watch", cfg.Script.Watch),
		zap.String("theme", theme.Name))

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	err = g.Wait()
	boot.Info("terminal stopped", zap.Error(err))
	return err
}
