package workflows

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/store"
)

// FormatVersion is written to every backup file.
const FormatVersion = "1.0"

// Reserved top-level fields of a backup document. They are never imported
// as record sets.
const (
	fieldExportDate = "exportDate"
	fieldVersion    = "version"
	fieldEncrypted  = "encrypted"
	fieldBackupCode = "backupCode"
	fieldTimestamp  = "timestamp"
	fieldData       = "data"
)

// encryptedBackup is the on-disk shape of a password-protected backup.
type encryptedBackup struct {
	Encrypted  bool   `json:"encrypted"`
	BackupCode string `json:"backupCode"`
	Timestamp  string `json:"timestamp"`
	Version    string `json:"version"`
	// Data is the plain backup document, encrypted under the backup password.
	Data string `json:"data"`
}

const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var randReader io.Reader = rand.Reader

// newBackupCode returns a display-only identifier of the form XXXX-XXXX-XXXX.
func newBackupCode() (string, error) {
	buf := make([]byte, 12)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return "", fmt.Errorf("generating backup code: %w", err)
	}

	var b strings.Builder
	for i, c := range buf {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(backupCodeAlphabet[int(c)%len(backupCodeAlphabet)])
	}
	return b.String(), nil
}

// parseDocument splits a plain backup document into its record sets.
// Reserved fields are dropped.
func parseDocument(data []byte) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidBackup, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is not an object", kerrors.ErrInvalidBackup)
	}

	for _, reserved := range []string{fieldExportDate, fieldVersion} {
		delete(doc, reserved)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: no record sets", kerrors.ErrInvalidBackup)
	}
	return doc, nil
}

// isEncryptedBackup reports whether doc is the password-protected variant.
func isEncryptedBackup(doc map[string]json.RawMessage) bool {
	raw, ok := doc[fieldEncrypted]
	if !ok {
		return false
	}
	var encrypted bool
	if err := json.Unmarshal(raw, &encrypted); err != nil || !encrypted {
		return false
	}
	_, hasData := doc[fieldData]
	return hasData
}

// pinEncryptionFlag rewrites settings.encryptionEnabled to match the target
// store, so an import never changes whether data is encrypted.
func pinEncryptionFlag(records map[string]json.RawMessage, encrypted bool) error {
	settings, ok := records[store.Settings]
	if !ok {
		return nil
	}
	pinned, err := store.WithEncryptionFlag(settings, encrypted)
	if err != nil {
		return fmt.Errorf("%w: settings: %v", kerrors.ErrInvalidBackup, err)
	}
	records[store.Settings] = pinned
	return nil
}
