package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initForce bool

// initCmd writes a config file for the current workspace
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the resolved settings",
	Long: `Writes the configuration scriptterm would run with (defaults, then
environment overrides, then flags) to the --config path.

An existing file is left alone unless --force is given.

Example:
  scriptterm init --script https://example.com/search.go --watch=false`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s. Use --force to overwrite it.\n", configPath)
		return nil
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}
