package cmd

import (
	"fmt"

	"github.com/PolarWolf314/coffer/internal/finance"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/spf13/cobra"
)

var currencyCmd = &cobra.Command{
	Use:   "currency [code]",
	Short: "Show or change the display currency",
	Long: `Shows the display currency, or changes it to the given ISO 4217 code.

Examples:
  coffer currency
  coffer currency EUR`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting currency command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		ledger := e.ledger()
		if len(args) == 0 {
			settings, err := ledger.Settings()
			if err != nil {
				return report(err)
			}
			fmt.Println("Display currency: " + ui.Highlight.Sprint(settings.Currency))
			return nil
		}

		if err := ledger.SetCurrency(args[0]); err != nil {
			return report(err)
		}
		code, _ := finance.NormalizeCurrency(args[0])
		fmt.Println(ui.Success.Sprint("✓") + " Display currency set to " + ui.Highlight.Sprint(code))
		return nil
	},
}
