package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/PolarWolf314/coffer/internal/audit"
	"github.com/PolarWolf314/coffer/internal/configs"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/PolarWolf314/coffer/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logReverse   bool
	logOperation string
	logSince     string
	logOneline   bool
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logOperation, "op", "", "filter by operation type (comma-separated)")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	_ = logCmd.Flags().MarkHidden("operation")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "compact one-line format")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the audit log of security and data operations.

Unlocks, encryption changes, password changes, exports, imports and clears
are recorded with their outcome. Passwords are never logged.

Examples:
  coffer log                              # View full log
  coffer log -n 10                        # Last 10 entries
  coffer log --reverse                    # Most recent first
  coffer log --op unlock,passwd           # Filter by operation
  coffer log --since 2024-01-01           # Filter by date
  coffer log --json                       # JSON output`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	paths, err := configs.ResolvePaths(configPath, dataDir)
	if err != nil {
		return Logger.ErrorfAndReturn("failed to resolve data directory: %v", err)
	}

	result, err := workflows.Log(cmd.Context(), workflows.LogOptions{
		Path:      audit.NewTrail(paths.DataDir).Path(),
		Limit:     logLimit,
		Reverse:   logReverse,
		Operation: logOperation,
		Since:     logSince,
	})
	if err != nil {
		return report(err)
	}

	Logger.Debugf("Parsed %d entries from audit log", result.TotalEntriesBeforeFilter)
	Logger.Debugf("After filtering: %d entries", len(result.Entries))

	if len(result.Entries) == 0 {
		if result.TotalEntriesBeforeFilter == 0 {
			fmt.Println("No audit log entries found.")
		} else {
			fmt.Println("No audit log entries found matching the filters.")
		}
		return nil
	}

	switch {
	case logJSON:
		return outputLogJSON(result.Entries)
	case logOneline:
		outputLogOneline(result.Entries)
	default:
		outputLogDefault(result.Entries, time.Now())
	}
	return nil
}

func outputLogJSON(entries []audit.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func outputLogOneline(entries []audit.Entry) {
	for _, e := range entries {
		fmt.Printf("%s %s %s %s\n", workflows.FormatDateTime(e.Timestamp), e.Operation, e.Outcome, workflows.FormatDetails(e))
	}
}

func outputLogDefault(entries []audit.Entry, now time.Time) {
	for _, e := range entries {
		fmt.Printf("%s  %-18s  %s  %s\n",
			workflows.FormatDateTime(e.Timestamp),
			e.Operation,
			formatOutcome(e.Outcome),
			ui.Muted.Sprint(workflows.FormatAge(e.Timestamp, now)))
		if details := workflows.FormatDetails(e); details != "" {
			fmt.Printf("    %s\n", details)
		}
	}
}

func formatOutcome(outcome string) string {
	label := fmt.Sprintf("%-9s", outcome)
	switch outcome {
	case audit.OutcomeSuccess:
		return ui.Success.Sprint(label)
	case audit.OutcomeFailure:
		return ui.Error.Sprint(label)
	default:
		return ui.Warning.Sprint(label)
	}
}
