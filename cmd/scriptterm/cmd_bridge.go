package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scriptterm/internal/logging"
)

// runBridgeServer serves the bridge on stdio until interrupted. Logs go to
// stderr since stdout carries protocol lines.
func runBridgeServer(cmd *cobra.Command, _ []string) error {
	logs, err := logging.Stderr(verbose)
	if err != nil {
		return err
	}
	defer logs.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logs.Get(logging.CategoryBoot).Debug("bridge serving on stdio")
	return serveBridge(ctx, cfg, logs, cmd.InOrStdin(), cmd.OutOrStdout())
}
