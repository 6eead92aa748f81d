package cmd

import (
	"io"
	"os"

	logger "github.com/PolarWolf314/coffer/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose    bool
	debug      bool
	configPath string
	dataDir    string
	Logger     logger.Logger

	// promptInput feeds password prompts and confirmations.
	promptInput io.Reader = os.Stdin

	commands = []*cobra.Command{
		statusCmd,
		encryptionCmd,
		passwdCmd,
		exportCmd,
		importCmd,
		clearCmd,
		showCmd,
		logCmd,
		currencyCmd,
		assetCmd,
		expenseCmd,
		incomeCmd,
		goalCmd,
		categoryCmd,
	}
)

// Register attaches the global flags and every coffer subcommand to root.
func Register(root *cobra.Command) {
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $"+"COFFER_CONFIG or the user config dir)")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: $"+"COFFER_DATA_DIR or ~/.local/share/coffer)")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		Logger = logger.Logger{
			Verbose: verbose,
			Debug:   debug,
		}
		Logger.Debugf("Initializing coffer with verbose=%t, debug=%t", verbose, debug)
	}

	root.AddCommand(commands...)
}

// Helper functions for testing

// GetCommands returns the subcommands Register attaches.
func GetCommands() []*cobra.Command {
	return commands
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	configPath = ""
	dataDir = ""
	promptInput = os.Stdin
	Logger = logger.Logger{}

	for _, c := range commands {
		resetFlags(c)
	}
}

// resetFlags returns every flag of c and its subcommands to its default.
// Cobra keeps parsed values between executions in the same process.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}

// SetPromptInput replaces the reader password prompts and confirmations read from.
func SetPromptInput(r io.Reader) {
	promptInput = r
}
