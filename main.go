package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/PolarWolf314/coffer/cmd"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coffer",
	Short: "Coffer - a private, local personal finance tracker.",
	Long: `Coffer keeps track of your assets, expenses, income and savings goals
on your own machine, optionally encrypted with a password.

Usage:
  coffer <command> [flags]

Common Commands:
  status       Show whether your data is encrypted
  encryption   Turn password encryption on or off
  export       Export your data to a JSON backup
  asset        Track what you own

Run 'coffer help <command>' for more details on a specific command.
`,
	SilenceUsage: true,
	Run: func(c *cobra.Command, args []string) {
		figure.NewColorFigure("Coffer", "alligator2", "green", true).Print()
		fmt.Println()
		fmt.Println("Welcome to Coffer! Run 'coffer --help' to see available commands.")
	},
}

func main() {
	cmd.Register(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
