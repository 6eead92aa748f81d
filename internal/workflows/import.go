package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PolarWolf314/coffer/internal/audit"
	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	logger "github.com/PolarWolf314/coffer/internal/logging"
	"github.com/PolarWolf314/coffer/internal/secrets"
	"github.com/PolarWolf314/coffer/internal/store"
)

// OpImport is the audit operation name for imports.
const OpImport = "import"

// ImportMode represents the import strategy.
type ImportMode int

const (
	// ImportModeMerge writes the backup's record sets and keeps every other one.
	ImportModeMerge ImportMode = iota
	// ImportModeReplace makes the backup the complete contents of the store.
	ImportModeReplace
)

func (m ImportMode) String() string {
	if m == ImportModeReplace {
		return "replace"
	}
	return "merge"
}

// ImportOptions configures the import workflow.
type ImportOptions struct {
	// Store receives the record sets, encrypted under its installed key.
	Store *store.Store

	// InputPath is the backup file to read.
	InputPath string

	// Password is asked for the backup password when the file is encrypted.
	// It should return ErrCancelled if the user declines.
	Password func(ctx context.Context) (string, error)

	// KDF derives the backup key. The zero value uses the default iterations.
	KDF secrets.KDF

	// Mode is the import strategy (merge or replace).
	Mode ImportMode

	// DryRun previews the import without making changes.
	DryRun bool

	Audit  audit.Sink
	Logger logger.Logger
}

// ImportResult contains the outcome of an import operation.
type ImportResult struct {
	// Names lists the record sets found in the backup, sorted.
	Names []string

	// Added counts record sets that did not exist before.
	Added int

	// Overwritten counts existing record sets replaced by the backup's version.
	Overwritten int

	// Removed counts record sets deleted or reset because the backup lacks
	// them (replace mode only).
	Removed int

	// Encrypted reports whether the backup was password-protected.
	Encrypted bool

	// DryRun indicates whether this was a dry-run.
	DryRun bool

	// Mode is the import mode used.
	Mode ImportMode
}

// Import restores record sets from a backup written by Export.
//
// The backup's settings.encryptionEnabled is replaced by the store's real
// state, so importing never turns encryption on or off.
//
// Returns ErrInvalidBackup if the file is not a backup document.
// Returns ErrWrongPassword if an encrypted backup cannot be opened.
// Returns ErrCancelled if the password prompt is declined.
func Import(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("import: no store")
	}

	result, err := runImport(ctx, opts)

	if !opts.DryRun {
		entry := audit.Entry{Operation: OpImport, State: stateLabel(opts.Store), Mode: opts.Mode.String()}
		switch {
		case err == nil:
			entry.Outcome = audit.OutcomeSuccess
			entry.NamesCount = len(result.Names)
		case kerrors.Is(err, kerrors.ErrCancelled):
			entry.Outcome = audit.OutcomeCancelled
		default:
			entry.Outcome = audit.OutcomeFailure
			entry.Detail = err.Error()
		}
		sink(opts.Audit).Log(entry)
	}

	return result, err
}

func runImport(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("reading backup: %w", err)
	}

	result := &ImportResult{Mode: opts.Mode, DryRun: opts.DryRun}

	records, encrypted, err := readBackup(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	result.Encrypted = encrypted
	result.Names = sortedNames(records)

	if err := pinEncryptionFlag(records, opts.Store.Encrypting()); err != nil {
		return nil, err
	}

	existing, err := opts.Store.ListNames()
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}
	for _, name := range result.Names {
		if present[name] {
			result.Overwritten++
		} else {
			result.Added++
		}
	}
	if opts.Mode == ImportModeReplace {
		for _, name := range existing {
			if _, ok := records[name]; !ok {
				result.Removed++
			}
		}
	}

	if opts.DryRun {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Mode == ImportModeReplace {
		err = opts.Store.ReplaceAll(records)
	} else {
		err = opts.Store.ImportAll(records)
	}
	if err != nil {
		return nil, err
	}

	opts.Logger.Infof("Imported %d record sets (%s)", len(result.Names), opts.Mode)
	return result, nil
}

// readBackup returns the record sets in data, opening the encrypted variant
// with the backup password.
func readBackup(ctx context.Context, data []byte, opts ImportOptions) (map[string]json.RawMessage, bool, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil || outer == nil {
		return nil, false, fmt.Errorf("%w: not a JSON object", kerrors.ErrInvalidBackup)
	}

	if !isEncryptedBackup(outer) {
		records, err := parseDocument(data)
		return records, false, err
	}

	var backup encryptedBackup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, true, fmt.Errorf("%w: %v", kerrors.ErrInvalidBackup, err)
	}

	if opts.Password == nil {
		return nil, true, kerrors.ErrCancelled
	}
	password, err := opts.Password(ctx)
	if err != nil {
		return nil, true, err
	}

	key, err := withDefaults(opts.KDF).Derive(password)
	if err != nil {
		return nil, true, fmt.Errorf("deriving backup key: %w", err)
	}
	plain, err := secrets.Decrypt(key, backup.Data)
	if err != nil {
		opts.Logger.Debugf("Backup %s did not open: %v", backup.BackupCode, err)
		return nil, true, kerrors.ErrWrongPassword
	}

	records, err := parseDocument(plain)
	return records, true, err
}
