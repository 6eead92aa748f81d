package cmd

import (
	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/session"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/spf13/cobra"
)

func init() {
	encryptionCmd.AddCommand(encryptionEnableCmd)
	encryptionCmd.AddCommand(encryptionDisableCmd)
}

var encryptionCmd = &cobra.Command{
	Use:   "encryption",
	Short: "Turn password encryption on or off",
	Long: `Turns password encryption of your stored data on or off.

Every record set is rewritten in a single batch. If anything fails, nothing
is changed and your data stays as it was.`,
}

var encryptionEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Encrypt your data with a password",
	Long: `Asks for a new password twice and encrypts every record set with it.

There is no way to recover data if you forget the password. Keep an export
somewhere safe.

Examples:
  coffer encryption enable
  printf 'secret\nsecret\n' | coffer encryption enable`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encryption enable command")

		e, err := openEnv(cmd.Context(), false)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		// Locked data is already encrypted, so there is nothing to unlock for.
		if e.session.State() == session.Locked {
			return report(kerrors.ErrAlreadyEncrypted)
		}

		if err := e.session.EnableEncryption(cmd.Context()); err != nil {
			return reportFlow(err)
		}

		Logger.Infof("Encryption enabled")
		printHint("Run " + ui.Code.Sprint("coffer export --encrypted") + " to keep a password-protected backup")
		return nil
	},
}

var encryptionDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Store your data without a password",
	Long: `Asks for the current password and rewrites every record set unencrypted.

Examples:
  coffer encryption disable`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encryption disable command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		if err := e.session.DisableEncryption(cmd.Context()); err != nil {
			return reportFlow(err)
		}

		Logger.Infof("Encryption disabled")
		return nil
	},
}
