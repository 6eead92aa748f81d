package cmd

import (
	"fmt"

	"github.com/PolarWolf314/coffer/internal/finance"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/spf13/cobra"
)

func init() {
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryAddCmd)
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage expense and income categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list [expense|income]",
	Short: "List categories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting category list command")

		kinds := []finance.CategoryKind{finance.ExpenseCategory, finance.IncomeCategory}
		if len(args) == 1 {
			kind, err := finance.ParseCategoryKind(args[0])
			if err != nil {
				return report(err)
			}
			kinds = []finance.CategoryKind{kind}
		}

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		list, err := e.ledger().Categories()
		if err != nil {
			return report(err)
		}

		for _, kind := range kinds {
			fmt.Printf("%s categories:", capitalize(string(kind)))
			names := list.Of(kind)
			if len(names) == 0 {
				fmt.Println(" " + ui.Muted.Sprint("none"))
				continue
			}
			fmt.Println()
			for _, name := range names {
				fmt.Println("  - " + name)
			}
		}
		return nil
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <expense|income> <name>",
	Short: "Add a category",
	Long: `Adds a category to the expense or income list. Names are matched
without regard to case, so "food" and "Food" are the same category.

Examples:
  coffer category add expense Pets`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting category add command")

		kind, err := finance.ParseCategoryKind(args[0])
		if err != nil {
			return report(err)
		}

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		if err := e.ledger().AddCategory(kind, args[1]); err != nil {
			return report(err)
		}
		fmt.Println(ui.Success.Sprint("✓") + " Added " + string(kind) + " category " + ui.Highlight.Sprint(args[1]))
		return nil
	},
}
