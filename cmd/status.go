package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/coffer/internal/finance"
	"github.com/PolarWolf314/coffer/internal/session"
	"github.com/PolarWolf314/coffer/internal/store"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/PolarWolf314/coffer/internal/utils"
	"github.com/PolarWolf314/coffer/internal/workflows"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusJSONOutput bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
}

// statusEntryJSON is one record set in --json output.
type statusEntryJSON struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Size  int    `json:"size"`
}

// statusJSON is the --json output shape.
type statusJSON struct {
	State             string            `json:"state"`
	RemainingAttempts int               `json:"remaining_attempts"`
	MaxAttempts       int               `json:"max_attempts"`
	Entries           []statusEntryJSON `json:"entries"`
	Missing           []string          `json:"missing"`
	Summary           struct {
		Plaintext int `json:"plaintext"`
		Encrypted int `json:"encrypted"`
		Bytes     int `json:"bytes"`
	} `json:"summary"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether your data is encrypted",
	Long: `Shows the encryption state and how every record set is stored.

Status never asks for a password and never decrypts anything, so it works
even when your data is locked.

Use --json for machine-readable output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		e, err := openEnv(cmd.Context(), false)
		if err != nil {
			return report(err)
		}
		defer e.Close()

		result, err := workflows.Status(cmd.Context(), workflows.StatusOptions{Session: e.session})
		if err != nil {
			return report(err)
		}
		Logger.Debugf("Found %d stored record sets, %d missing", len(result.Entries), len(result.Missing))

		if statusJSONOutput {
			return outputStatusJSON(result)
		}

		printStatusTable(result)
		if e.session.State() == session.UnlockedPlain || e.session.State() == session.UnlockedEncrypted {
			printTotals(e)
		}
		fmt.Println()
		fmt.Print("Files:" + utils.FormatPaths(e.files()))
		return nil
	},
}

// outputStatusJSON outputs the result as JSON.
func outputStatusJSON(result *workflows.StatusResult) error {
	out := statusJSON{
		State:             result.State.String(),
		RemainingAttempts: result.RemainingAttempts,
		MaxAttempts:       result.MaxAttempts,
		Entries:           []statusEntryJSON{},
		Missing:           result.Missing,
	}
	if out.Missing == nil {
		out.Missing = []string{}
	}
	for _, info := range result.Entries {
		out.Entries = append(out.Entries, statusEntryJSON{Name: info.Name, State: info.State.String(), Size: info.Size})
	}
	out.Summary.Plaintext = result.Summary.Plaintext
	out.Summary.Encrypted = result.Summary.Encrypted
	out.Summary.Bytes = result.Summary.Bytes

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// printStatusTable prints a formatted table of record set states.
func printStatusTable(result *workflows.StatusResult) {
	fmt.Printf("Encryption: %s\n", ui.StateLabel(result.State))
	if result.State == session.Locked {
		fmt.Printf("Attempts:   %d of %d remaining\n", result.RemainingAttempts, result.MaxAttempts)
	}
	fmt.Println()

	if len(result.Entries) == 0 {
		fmt.Println(ui.Info.Sprint("→") + " No data stored yet.")
		return
	}

	maxLen := len("RECORD SET")
	for _, info := range result.Entries {
		if len(info.Name) > maxLen {
			maxLen = len(info.Name)
		}
	}

	fmt.Printf("  %-*s  %-10s  %s\n", maxLen, "RECORD SET", "STORED AS", "SIZE")
	for _, info := range result.Entries {
		fmt.Printf("  %-*s  %-10s  %s\n", maxLen, info.Name, formatEntryState(info.State), humanize.Bytes(uint64(info.Size)))
	}

	fmt.Println()
	fmt.Printf("Summary: %d encrypted, %d plaintext, %s total\n",
		result.Summary.Encrypted, result.Summary.Plaintext, humanize.Bytes(uint64(result.Summary.Bytes)))

	if len(result.Missing) > 0 {
		fmt.Println(ui.Muted.Sprint("not yet created: ") + strings.Join(result.Missing, ", "))
	}

	if result.State == session.UnlockedPlain && result.Summary.Plaintext > 0 {
		fmt.Println()
		fmt.Println(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("coffer encryption enable") + " to protect your data with a password")
	}
}

// formatEntryState pads before colouring so the table columns stay aligned.
func formatEntryState(state store.EntryState) string {
	label := fmt.Sprintf("%-10s", state.String())
	switch state {
	case store.EntryEncrypted:
		return ui.Success.Sprint(label)
	case store.EntryPlaintext:
		return ui.Warning.Sprint(label)
	default:
		return ui.Muted.Sprint(label)
	}
}

// printTotals prints the one-line money summary. It is skipped quietly when
// a record set cannot be read.
func printTotals(e *env) {
	totals, err := e.ledger().Totals()
	if err != nil {
		Logger.Debugf("Skipping totals: %v", err)
		return
	}
	currency := e.currency()
	fmt.Printf("Totals:  assets %s, income %s, expenses %s, balance %s, saved %s\n",
		ui.Amount.Sprint(finance.FormatAmount(totals.Assets, currency)),
		finance.FormatAmount(totals.Income, currency),
		finance.FormatAmount(totals.Expenses, currency),
		ui.Amount.Sprint(finance.FormatAmount(totals.Balance, currency)),
		finance.FormatAmount(totals.Saved, currency))
}
