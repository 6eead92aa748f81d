package cmd

import (
	"context"
	"fmt"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/PolarWolf314/coffer/internal/utils"
	"github.com/PolarWolf314/coffer/internal/workflows"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	exportOutputPath string
	exportEncrypted  bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutputPath, "output", "o", "", "output path for the backup (default: coffer-backup-YYYY-MM-DD.json)")
	exportCmd.Flags().BoolVar(&exportEncrypted, "encrypted", false, "protect the backup with a password")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export your data to a JSON backup",
	Long: `Writes every record set to a JSON backup file.

The backup holds your data decrypted, so it can be restored on a store with
a different password or none. Use --encrypted to protect the file itself
with a backup password, which may differ from your encryption password.

Use -o/--output to specify a custom output path.
Default filename includes today's date: coffer-backup-YYYY-MM-DD.json

Examples:
  # Export to default filename
  coffer export

  # Export a password-protected backup
  coffer export --encrypted -o ~/backups/finances.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting export command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		var password string
		if exportEncrypted {
			password, err = promptBackupPassword(cmd.Context(), e.prompter)
			if err != nil {
				return report(err)
			}
		}

		prog := startProgress("Exporting data...")

		result, err := workflows.Export(cmd.Context(), workflows.ExportOptions{
			Store:      e.session.Store(),
			OutputPath: exportOutputPath,
			Encrypt:    exportEncrypted,
			Password:   password,
			KDF:        e.kdf(),
			Audit:      e.trail,
			Logger:     Logger,
		})
		if err != nil {
			return prog.done("", err)
		}

		finalMessage := ui.Success.Sprint("✓") + fmt.Sprintf(" Exported %d record sets to ", len(result.Names)) +
			ui.Path.Sprint(result.OutputPath) + " " + ui.Muted.Sprint(humanize.Bytes(uint64(result.Bytes)))
		if result.Encrypted {
			finalMessage += "\n" + ui.Info.Sprint("→") + " Backup code: " + ui.Highlight.Sprint(result.BackupCode) +
				"\n" + ui.Info.Sprint("Note:") + " Without the backup password this file cannot be restored."
		} else if e.session.Encrypted() {
			finalMessage += "\n" + ui.Warning.Sprint("⚠") + " This backup is not encrypted. Use " + ui.Flag.Sprint("--encrypted") + " to protect it."
		}

		return prog.done(finalMessage, nil)
	},
}

// promptBackupPassword asks for a backup password and its confirmation.
func promptBackupPassword(ctx context.Context, p *utils.TerminalPrompter) (string, error) {
	password, err := p.PromptPassword(ctx, "Enter a backup password: ")
	if err != nil {
		return "", err
	}
	confirm, err := p.PromptPassword(ctx, "Confirm backup password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", kerrors.ErrEmptyPassword
	}
	if password != confirm {
		return "", kerrors.ErrPasswordMismatch
	}
	return password, nil
}
