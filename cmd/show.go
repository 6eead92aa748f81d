package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/store"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/spf13/cobra"
)

var showRaw bool

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print the stored bytes without decrypting")
}

var showCmd = &cobra.Command{
	Use:   "show <record-set>",
	Short: "Print a record set as JSON",
	Long: `Prints one record set as indented JSON.

Known record sets: assets, expenses, income, goals, categories, settings.

With --raw the value is printed exactly as stored, which for encrypted
data is the ciphertext envelope. --raw never asks for a password.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting show command")
		name := args[0]

		e, err := openEnv(cmd.Context(), !showRaw)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		if showRaw {
			raw, ok, err := e.session.Store().Raw(name)
			if err != nil {
				return report(err)
			}
			if !ok {
				return report(fmt.Errorf("%w: record set %q is not stored", kerrors.ErrNotFound, name))
			}
			fmt.Println(string(raw))
			return nil
		}

		result := e.session.Store().Lookup(name)
		switch result.Status {
		case store.Absent:
			if !store.IsKnown(name) {
				return report(fmt.Errorf("%w: record set %q is not stored", kerrors.ErrNotFound, name))
			}
			fmt.Println(ui.Muted.Sprint("not stored yet, showing the default"))
			result.Value, _ = store.Default(name)
		case store.Unreadable:
			return report(fmt.Errorf("%w: %s: %v", kerrors.ErrDataUnavailable, name, result.Err))
		}

		var out bytes.Buffer
		if err := json.Indent(&out, result.Value, "", "  "); err != nil {
			return report(fmt.Errorf("%w: %s: %v", kerrors.ErrSerialization, name, err))
		}
		fmt.Println(out.String())
		return nil
	},
}
