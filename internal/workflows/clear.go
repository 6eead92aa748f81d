package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/coffer/internal/audit"
	logger "github.com/PolarWolf314/coffer/internal/logging"
	"github.com/PolarWolf314/coffer/internal/store"
)

// OpClear is the audit operation name for clearing all data.
const OpClear = "clear"

// ClearOptions configures the clear workflow.
type ClearOptions struct {
	Store *store.Store

	// DryRun previews what would be reset without making changes.
	DryRun bool

	// Force skips the confirmation prompt (handled by caller).
	Force bool

	Audit  audit.Sink
	Logger logger.Logger
}

// ClearResult contains the outcome of a clear operation.
type ClearResult struct {
	// Reset lists the known record sets returned to their defaults.
	Reset []string

	// Removed lists the unknown record sets deleted.
	Removed []string

	// DryRun indicates whether this was a dry-run.
	DryRun bool
}

// Clear resets every record set to its default. Encryption stays as it is:
// an encrypted store is still encrypted, under the same key, afterwards.
func Clear(ctx context.Context, opts ClearOptions) (*ClearResult, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("clear: no store")
	}

	names, err := opts.Store.ListNames()
	if err != nil {
		return nil, err
	}

	result := &ClearResult{Reset: append([]string(nil), store.KnownNames...), DryRun: opts.DryRun}
	for _, name := range names {
		if !store.IsKnown(name) {
			result.Removed = append(result.Removed, name)
		}
	}

	if opts.DryRun {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = opts.Store.ClearAll()

	entry := audit.Entry{Operation: OpClear, State: stateLabel(opts.Store)}
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Detail = err.Error()
	} else {
		entry.Outcome = audit.OutcomeSuccess
		entry.NamesCount = len(result.Reset) + len(result.Removed)
	}
	sink(opts.Audit).Log(entry)

	if err != nil {
		return nil, err
	}
	opts.Logger.Infof("Cleared %d record sets", entry.NamesCount)
	return result, nil
}
