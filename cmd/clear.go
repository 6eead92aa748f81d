package cmd

import (
	"fmt"

	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/PolarWolf314/coffer/internal/utils"
	"github.com/PolarWolf314/coffer/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	clearForce  bool
	clearDryRun bool
)

func init() {
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "skip confirmation prompt")
	clearCmd.Flags().BoolVar(&clearDryRun, "dry-run", false, "show what would be cleared without making changes")
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all your financial data",
	Long: `Resets every record set to its empty default.

Encryption stays as it is: if your data was encrypted it is still
encrypted, under the same password, afterwards.

This cannot be undone. Export a backup first.

Examples:
  coffer clear --dry-run
  coffer clear --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting clear command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		if !clearForce && !clearDryRun {
			fmt.Println(ui.Warning.Sprint("⚠") + " This will permanently delete all your assets, expenses, income and goals.")
			ok, err := e.prompter.Confirm(cmd.Context(), "Do you want to continue?")
			if err != nil {
				return report(err)
			}
			if !ok {
				fmt.Println(ui.Warning.Sprint("⚠") + " Aborted. Nothing was cleared.")
				return nil
			}
		}

		result, err := workflows.Clear(cmd.Context(), workflows.ClearOptions{
			Store:  e.session.Store(),
			DryRun: clearDryRun,
			Force:  clearForce,
			Audit:  e.trail,
			Logger: Logger,
		})
		if err != nil {
			return report(err)
		}

		if result.DryRun {
			fmt.Println(ui.Warning.Sprint("[dry-run]") + " Would reset:" + utils.FormatNames(result.Reset))
			if len(result.Removed) > 0 {
				fmt.Println("Would remove:" + utils.FormatNames(result.Removed))
			}
			fmt.Println(ui.Info.Sprint("No changes made.") + " Run without " + ui.Flag.Sprint("--dry-run") + " to clear.")
			return nil
		}

		fmt.Println(ui.Success.Sprint("✓") + fmt.Sprintf(" Cleared %d record sets", len(result.Reset)+len(result.Removed)))
		return nil
	},
}
