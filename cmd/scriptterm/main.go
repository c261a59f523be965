// Command scriptterm is a terminal for running a script inside an embedded
// Go interpreter. The interactive terminal and the runtime bridge talk
// through a small message protocol, so the bridge can run in-process or as a
// child process.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scriptterm/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	scriptLoc  string
	watch      bool
	isolated   bool

	// Resolved configuration
	cfg *config.Config
)

// exitCodeError carries a script's exit status out of a command.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scriptterm",
	Short: "Terminal for scripts running in an embedded Go interpreter",
	Long: `scriptterm loads a Go script into an embedded interpreter and gives you a
terminal to run it with arguments. Script output streams into the terminal and
the script can ask you for input.

Run without arguments to start the interactive terminal.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: runTerminal,
}

// runCmd executes the script once without the terminal UI
var runCmd = &cobra.Command{
	Use:   "run [-- args...]",
	Short: "Run the script once and exit with its status",
	Long: `Boots the runtime, loads the configured script and runs it once with the
given arguments. Output goes to stdout, prompts are answered from stdin, and
the process exits with the script's exit code.

Example:
  scriptterm run -- -s "star wars" -c US`,
	RunE: runHeadless,
}

// bridgeCmd serves the runtime bridge over stdio
var bridgeCmd = &cobra.Command{
	Use:    "bridge",
	Short:  "Serve the runtime bridge as JSON lines on stdin/stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runBridgeServer,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVarP(&scriptLoc, "script", "s", "", "Script path or http(s) URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&watch, "watch", "w", false, "Reload the script when the file changes")
	rootCmd.PersistentFlags().BoolVar(&isolated, "isolated", false, "Run the bridge in a child process")

	rootCmd.AddCommand(runCmd, initCmd, bridgeCmd)
}

// loadConfig resolves file, environment and flag settings, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loaded, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if scriptLoc != "" {
		loaded.Script.Location = scriptLoc
	}
	if flags.Changed("watch") {
		loaded.Script.Watch = watch
	}
	if flags.Changed("isolated") {
		loaded.Bridge.Isolated = isolated
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return loaded, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
