package cmd

import (
	"fmt"

	"github.com/PolarWolf314/coffer/internal/finance"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/spf13/cobra"
)

var (
	goalName       string
	goalTarget     amountValue
	goalDeadline   dateValue
	goalAmount     amountValue
	goalDate       dateValue
	goalNote       string
	goalShowDetail bool
)

func init() {
	goalAddCmd.Flags().StringVar(&goalName, "name", "", "what you are saving for")
	goalAddCmd.Flags().Var(&goalTarget, "target", "amount to save")
	goalAddCmd.Flags().Var(&goalDeadline, "deadline", "target date, YYYY-MM-DD")

	goalContributeCmd.Flags().Var(&goalAmount, "amount", "amount saved")
	goalContributeCmd.Flags().Var(&goalDate, "date", "date saved, YYYY-MM-DD (default: today)")
	goalContributeCmd.Flags().StringVar(&goalNote, "note", "", "free-form note")

	goalListCmd.Flags().BoolVar(&goalShowDetail, "details", false, "list every contribution")

	goalCmd.AddCommand(goalAddCmd)
	goalCmd.AddCommand(goalContributeCmd)
	goalCmd.AddCommand(goalListCmd)
	goalCmd.AddCommand(goalRemoveCmd)
}

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Save towards targets",
	Long:  `Creates savings goals and records contributions. A goal's saved amount is always the sum of its contributions.`,
}

var goalAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a savings goal",
	Long: `Creates a savings goal.

Examples:
  coffer goal add --name "Emergency fund" --target 5000 --deadline 2025-01-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting goal add command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		goal, err := e.ledger().AddGoal(finance.GoalInput{
			Name:     goalName,
			Target:   goalTarget.amount,
			Deadline: goalDeadline.pointer(),
		})
		if err != nil {
			return report(err)
		}

		fmt.Println(ui.Success.Sprint("✓") + " Created goal " + ui.Highlight.Sprint(goal.Name) + " " +
			ui.Amount.Sprint(finance.FormatAmount(goal.Target, e.currency())) + " " + ui.Muted.Sprint(goal.ID))
		return nil
	},
}

var goalContributeCmd = &cobra.Command{
	Use:   "contribute <id>",
	Short: "Record savings towards a goal",
	Long: `Adds a contribution to a goal and updates its saved amount.

Examples:
  coffer goal contribute 3f2a... --amount 250`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting goal contribute command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		goal, err := e.ledger().Contribute(args[0], finance.ContributionInput{
			Amount: goalAmount.amount,
			Date:   goalDate.date,
			Note:   goalNote,
		})
		if err != nil {
			return report(err)
		}

		currency := e.currency()
		fmt.Println(ui.Success.Sprint("✓") + " Saved " + ui.Amount.Sprint(finance.FormatAmount(goalAmount.amount, currency)) +
			" towards " + ui.Highlight.Sprint(goal.Name))
		fmt.Println("  " + formatGoalProgress(goal, currency))
		return nil
	},
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals and their progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting goal list command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		goals, err := e.ledger().Goals()
		if err != nil {
			return report(err)
		}
		if len(goals) == 0 {
			fmt.Println("No goals yet.")
			printHint("Run " + ui.Code.Sprint("coffer goal add") + " to create one")
			return nil
		}

		currency := e.currency()
		for _, g := range goals {
			deadline := ""
			if g.Deadline != nil {
				deadline = " by " + g.Deadline.String()
			}
			fmt.Printf("%s  %s%s\n", ui.Muted.Sprint(g.ID), ui.Highlight.Sprint(g.Name), deadline)
			fmt.Println("    " + formatGoalProgress(g, currency))
			if goalShowDetail {
				for _, c := range g.SavingsDetails {
					fmt.Printf("      %s  %s  %s\n", c.Date, finance.FormatAmount(c.Amount, currency), c.Note)
				}
			}
		}
		return nil
	},
}

var goalRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove a goal",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting goal rm command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		if err := e.ledger().DeleteGoal(args[0]); err != nil {
			return report(err)
		}
		fmt.Println(ui.Success.Sprint("✓") + " Removed goal " + ui.Highlight.Sprint(args[0]))
		return nil
	},
}

func formatGoalProgress(g finance.Goal, currency string) string {
	return fmt.Sprintf("%s of %s saved (%s%%), %s to go",
		ui.Amount.Sprint(finance.FormatAmount(g.Saved, currency)),
		finance.FormatAmount(g.Target, currency),
		g.Progress().StringFixed(1),
		finance.FormatAmount(g.Remaining(), currency))
}
