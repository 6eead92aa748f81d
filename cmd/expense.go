package cmd

import (
	"fmt"

	"github.com/PolarWolf314/coffer/internal/finance"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	expenseDescription string
	expenseCategory    string
	expenseAmount      amountValue
	expenseDate        dateValue
	expenseNotes       string
)

func init() {
	expenseAddCmd.Flags().StringVar(&expenseDescription, "description", "", "what the money was spent on")
	expenseAddCmd.Flags().StringVar(&expenseCategory, "category", "", "expense category (see coffer category list)")
	expenseAddCmd.Flags().Var(&expenseAmount, "amount", "amount spent")
	expenseAddCmd.Flags().Var(&expenseDate, "date", "date spent, YYYY-MM-DD (default: today)")
	expenseAddCmd.Flags().StringVar(&expenseNotes, "notes", "", "free-form notes")

	expenseCmd.AddCommand(expenseAddCmd)
	expenseCmd.AddCommand(expenseListCmd)
	expenseCmd.AddCommand(expenseRemoveCmd)
}

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Track money spent",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an expense",
	Long: `Records an expense. The category must be one of your expense categories.

Examples:
  coffer expense add --description Groceries --category Food --amount 54.20
  coffer expense add --description Rent --category Housing --amount 1200 --date 2024-03-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting expense add command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		expense, err := e.ledger().AddExpense(finance.ExpenseInput{
			Description: expenseDescription,
			Category:    expenseCategory,
			Amount:      expenseAmount.amount,
			Date:        expenseDate.date,
			Notes:       expenseNotes,
		})
		if err != nil {
			return report(err)
		}

		fmt.Println(ui.Success.Sprint("✓") + " Recorded expense " + ui.Highlight.Sprint(expense.Description) + " " +
			ui.Amount.Sprint(finance.FormatAmount(expense.Amount, e.currency())) + " on " + expense.Date.String() + " " + ui.Muted.Sprint(expense.ID))
		return nil
	},
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting expense list command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		expenses, err := e.ledger().Expenses()
		if err != nil {
			return report(err)
		}
		if len(expenses) == 0 {
			fmt.Println("No expenses yet.")
			return nil
		}

		currency := e.currency()
		total := decimal.Zero
		for _, x := range expenses {
			fmt.Printf("%s  %s  %-24s  %-14s  %s\n", ui.Muted.Sprint(x.ID), x.Date, x.Description, x.Category, ui.Amount.Sprint(finance.FormatAmount(x.Amount, currency)))
			total = total.Add(x.Amount)
		}
		fmt.Println()
		fmt.Println("Total spent: " + ui.Amount.Sprint(finance.FormatAmount(total, currency)))
		return nil
	},
}

var expenseRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove an expense",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting expense rm command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		if err := e.ledger().DeleteExpense(args[0]); err != nil {
			return report(err)
		}
		fmt.Println(ui.Success.Sprint("✓") + " Removed expense " + ui.Highlight.Sprint(args[0]))
		return nil
	},
}
