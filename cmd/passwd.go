package cmd

import (
	"github.com/spf13/cobra"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the encryption password",
	Long: `Asks for the current password, then a new password twice, and
re-encrypts every record set with the new one.

Encrypted backups made before the change still open with the password they
were exported with.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting passwd command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		if err := e.session.ChangePassword(cmd.Context()); err != nil {
			return reportFlow(err)
		}

		Logger.Infof("Password changed")
		return nil
	},
}
