package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/PolarWolf314/coffer/internal/utils"
	"github.com/PolarWolf314/coffer/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	importReplaceFlag bool
	importDryRun      bool
)

func init() {
	importCmd.Flags().BoolVar(&importReplaceFlag, "replace", false, "replace all data with the backup's contents")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "show what would be imported without making changes")
}

var importCmd = &cobra.Command{
	Use:   "import <backup.json>",
	Short: "Restore data from a JSON backup",
	Long: `Restores record sets from a backup written by coffer export.

By default the backup is merged: record sets in the backup overwrite yours
and everything else is left alone. With --replace, record sets the backup
lacks are reset or removed so the result matches the backup exactly.

Importing never turns encryption on or off. Restored data is stored the way
your data is stored now.

Examples:
  # Merge a backup into your data
  coffer import coffer-backup-2024-03-15.json

  # Preview a full replacement
  coffer import backup.json --replace --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting import command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		mode := workflows.ImportModeMerge
		if importReplaceFlag {
			mode = workflows.ImportModeReplace
		}
		Logger.Debugf("Import mode: %s, dry run: %t", mode, importDryRun)

		result, err := workflows.Import(cmd.Context(), workflows.ImportOptions{
			Store:     e.session.Store(),
			InputPath: args[0],
			Password:  backupPasswordPrompt(e.prompter),
			KDF:       e.kdf(),
			Mode:      mode,
			DryRun:    importDryRun,
			Audit:     e.trail,
			Logger:    Logger,
		})
		if err != nil {
			return report(err)
		}

		printImportResult(result, args[0])
		return nil
	},
}

func backupPasswordPrompt(p *utils.TerminalPrompter) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return p.PromptPassword(ctx, "Enter the backup password: ")
	}
}

func printImportResult(result *workflows.ImportResult, path string) {
	if result.DryRun {
		fmt.Println(ui.Warning.Sprint("[dry-run]") + " Would import " + ui.Path.Sprint(path) + " (" + result.Mode.String() + ")")
		fmt.Println()
		fmt.Printf("  Record sets in backup: %s", utils.FormatNames(result.Names))
		fmt.Printf("  Would add:       %d\n", result.Added)
		fmt.Printf("  Would overwrite: %d\n", result.Overwritten)
		if result.Mode == workflows.ImportModeReplace {
			fmt.Printf("  Would reset:     %d\n", result.Removed)
		}
		fmt.Println()
		fmt.Println(ui.Info.Sprint("No changes made.") + " Run without " + ui.Flag.Sprint("--dry-run") + " to import.")
		return
	}

	fmt.Println(ui.Success.Sprint("✓") + fmt.Sprintf(" Imported %d record sets from ", len(result.Names)) + ui.Path.Sprint(path))
	fmt.Printf("  Added: %d, overwritten: %d", result.Added, result.Overwritten)
	if result.Mode == workflows.ImportModeReplace {
		fmt.Printf(", reset: %d", result.Removed)
	}
	fmt.Println()
	if result.Encrypted {
		fmt.Println(ui.Muted.Sprint("backup was password-protected"))
	}
}
