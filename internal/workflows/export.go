package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/coffer/internal/audit"
	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	logger "github.com/PolarWolf314/coffer/internal/logging"
	"github.com/PolarWolf314/coffer/internal/secrets"
	"github.com/PolarWolf314/coffer/internal/store"
)

// OpExport is the audit operation name for exports.
const OpExport = "export"

// ExportOptions configures the export workflow.
type ExportOptions struct {
	// Store is read through its installed key, so the backup holds plaintext
	// record sets even when the store itself is encrypted.
	Store *store.Store

	// OutputPath is the file to write.
	// If empty, defaults to DefaultExportName in the working directory.
	OutputPath string

	// Encrypt protects the backup with Password.
	Encrypt bool

	// Password is the backup password. Required when Encrypt is set.
	Password string

	// KDF derives the backup key. The zero value uses the default iterations.
	KDF secrets.KDF

	// Now overrides time.Now for the export timestamp.
	Now func() time.Time

	// Version is written to the document. Defaults to FormatVersion.
	Version string

	Audit  audit.Sink
	Logger logger.Logger
}

// ExportResult contains the outcome of an export operation.
type ExportResult struct {
	// OutputPath is the path of the written backup.
	OutputPath string

	// Names lists the exported record sets, sorted.
	Names []string

	// Encrypted reports whether the backup is password-protected.
	Encrypted bool

	// BackupCode identifies an encrypted backup for display. Empty otherwise.
	BackupCode string

	// Bytes is the size of the written file.
	Bytes int
}

// DefaultExportName returns the backup file name used when no output path is given.
func DefaultExportName(now time.Time, encrypted bool) string {
	if encrypted {
		return fmt.Sprintf("coffer-backup-%s.encrypted.json", now.Format("2006-01-02"))
	}
	return fmt.Sprintf("coffer-backup-%s.json", now.Format("2006-01-02"))
}

// Export writes every record set to a JSON backup file.
//
// Returns ErrDataUnavailable if any record set cannot be read, so a backup
// is never silently incomplete. Returns ErrEmptyPassword if Encrypt is set
// without a password.
func Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("export: no store")
	}
	if opts.Encrypt && opts.Password == "" {
		return nil, kerrors.ErrEmptyPassword
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now().UTC()

	version := opts.Version
	if version == "" {
		version = FormatVersion
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = DefaultExportName(stamp, opts.Encrypt)
	}

	result, err := export(ctx, opts, outputPath, stamp, version)
	entry := audit.Entry{Operation: OpExport, State: stateLabel(opts.Store), OutputPath: outputPath}
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Detail = err.Error()
	} else {
		entry.Outcome = audit.OutcomeSuccess
		entry.NamesCount = len(result.Names)
	}
	sink(opts.Audit).Log(entry)

	return result, err
}

func export(ctx context.Context, opts ExportOptions, outputPath string, stamp time.Time, version string) (*ExportResult, error) {
	records, err := opts.Store.ExportAll()
	if err != nil {
		return nil, fmt.Errorf("reading record sets: %w", err)
	}

	doc := make(map[string]json.RawMessage, len(records)+2)
	for name, value := range records {
		doc[name] = value
	}
	doc[fieldExportDate], _ = json.Marshal(stamp.Format(time.RFC3339))
	doc[fieldVersion], _ = json.Marshal(version)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrSerialization, err)
	}

	result := &ExportResult{OutputPath: outputPath, Names: sortedNames(records)}

	if opts.Encrypt {
		opts.Logger.Debugf("Deriving backup key")
		key, err := withDefaults(opts.KDF).Derive(opts.Password)
		if err != nil {
			return nil, fmt.Errorf("deriving backup key: %w", err)
		}
		envelope, err := secrets.Encrypt(key, data)
		if err != nil {
			return nil, fmt.Errorf("encrypting backup: %w", err)
		}
		code, err := newBackupCode()
		if err != nil {
			return nil, err
		}

		data, err = json.MarshalIndent(encryptedBackup{
			Encrypted:  true,
			BackupCode: code,
			Timestamp:  stamp.Format(time.RFC3339),
			Version:    version,
			Data:       envelope,
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrSerialization, err)
		}
		result.Encrypted = true
		result.BackupCode = code
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, append(data, '\n'), 0600); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	result.Bytes = len(data) + 1

	opts.Logger.Infof("Exported %d record sets to %s", len(result.Names), outputPath)
	return result, nil
}
