package cmd

import (
	"fmt"

	"github.com/PolarWolf314/coffer/internal/finance"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	incomeSource    string
	incomeCategory  string
	incomeAmount    amountValue
	incomeDate      dateValue
	incomeRecurring bool
	incomeNotes     string
)

func init() {
	incomeAddCmd.Flags().StringVar(&incomeSource, "source", "", "where the money came from")
	incomeAddCmd.Flags().StringVar(&incomeCategory, "category", "", "income category (see coffer category list)")
	incomeAddCmd.Flags().Var(&incomeAmount, "amount", "amount received")
	incomeAddCmd.Flags().Var(&incomeDate, "date", "date received, YYYY-MM-DD (default: today)")
	incomeAddCmd.Flags().BoolVar(&incomeRecurring, "recurring", false, "mark as recurring income")
	incomeAddCmd.Flags().StringVar(&incomeNotes, "notes", "", "free-form notes")

	incomeCmd.AddCommand(incomeAddCmd)
	incomeCmd.AddCommand(incomeListCmd)
	incomeCmd.AddCommand(incomeRemoveCmd)
}

var incomeCmd = &cobra.Command{
	Use:   "income",
	Short: "Track money received",
}

var incomeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record income",
	Long: `Records income. The category must be one of your income categories.

Examples:
  coffer income add --source "ACME Corp" --category Salary --amount 3200 --recurring`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting income add command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		income, err := e.ledger().AddIncome(finance.IncomeInput{
			Source:    incomeSource,
			Category:  incomeCategory,
			Amount:    incomeAmount.amount,
			Date:      incomeDate.date,
			Recurring: incomeRecurring,
			Notes:     incomeNotes,
		})
		if err != nil {
			return report(err)
		}

		fmt.Println(ui.Success.Sprint("✓") + " Recorded income from " + ui.Highlight.Sprint(income.Source) + " " +
			ui.Amount.Sprint(finance.FormatAmount(income.Amount, e.currency())) + " on " + income.Date.String() + " " + ui.Muted.Sprint(income.ID))
		return nil
	},
}

var incomeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List income",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting income list command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		income, err := e.ledger().Income()
		if err != nil {
			return report(err)
		}
		if len(income) == 0 {
			fmt.Println("No income yet.")
			return nil
		}

		currency := e.currency()
		total := decimal.Zero
		for _, i := range income {
			recurring := ""
			if i.Recurring {
				recurring = ui.Muted.Sprint("recurring")
			}
			fmt.Printf("%s  %s  %-24s  %-14s  %s %s\n", ui.Muted.Sprint(i.ID), i.Date, i.Source, i.Category, ui.Amount.Sprint(finance.FormatAmount(i.Amount, currency)), recurring)
			total = total.Add(i.Amount)
		}
		fmt.Println()
		fmt.Println("Total received: " + ui.Amount.Sprint(finance.FormatAmount(total, currency)))
		return nil
	},
}

var incomeRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove income",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting income rm command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		if err := e.ledger().DeleteIncome(args[0]); err != nil {
			return report(err)
		}
		fmt.Println(ui.Success.Sprint("✓") + " Removed income " + ui.Highlight.Sprint(args[0]))
		return nil
	},
}
