package errors

import (
	"errors"
	"fmt"
)

// Cryptographic errors indicate failures while deriving keys or opening envelopes.
var (
	// ErrDecryption indicates an envelope could not be authenticated or decoded.
	// Wrong keys, tampered or truncated envelopes and plaintext passed where
	// ciphertext was expected all end up here.
	ErrDecryption = errors.New("failed to decrypt data")

	// ErrWrongPassword indicates the supplied password does not unlock the stored data.
	ErrWrongPassword = errors.New("incorrect password")
)

// Data errors indicate problems with stored or supplied record values.
var (
	// ErrSerialization indicates a value could not be encoded or decoded as JSON.
	ErrSerialization = errors.New("malformed record data")

	// ErrDataUnavailable indicates a record set exists but cannot be read
	// under the current key.
	ErrDataUnavailable = errors.New("record data is unavailable")

	// ErrNotFound indicates a record with the given identifier does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidBackup indicates a backup file is not a coffer export.
	ErrInvalidBackup = errors.New("invalid backup file")
)

// Storage errors indicate the underlying key-value store refused an operation.
var (
	// ErrStorage indicates a read or write against the backend failed.
	ErrStorage = errors.New("storage operation failed")

	// ErrQuotaExceeded indicates a write would exceed the backend's byte quota.
	ErrQuotaExceeded = fmt.Errorf("%w: quota exceeded", ErrStorage)
)

// Validation errors indicate user input was rejected before any state changed.
var (
	// ErrValidation indicates user-supplied input was rejected.
	ErrValidation = errors.New("invalid input")

	// ErrPasswordMismatch indicates a password and its confirmation differ.
	ErrPasswordMismatch = fmt.Errorf("%w: passwords do not match", ErrValidation)

	// ErrEmptyPassword indicates an empty password was supplied.
	ErrEmptyPassword = fmt.Errorf("%w: password must not be empty", ErrValidation)
)

// Session errors indicate a security flow cannot run in the current state.
var (
	// ErrCancelled indicates the user declined a password prompt.
	ErrCancelled = errors.New("operation cancelled")

	// ErrLocked indicates the store is encrypted and has not been unlocked yet.
	ErrLocked = errors.New("data is locked")

	// ErrAppLocked indicates too many failed unlock attempts. Only a restart clears it.
	ErrAppLocked = errors.New("too many failed password attempts")

	// ErrBusy indicates another security operation is already in progress.
	ErrBusy = errors.New("another security operation is in progress")

	// ErrAlreadyEncrypted indicates encryption is already enabled.
	ErrAlreadyEncrypted = errors.New("encryption is already enabled")

	// ErrNotEncrypted indicates encryption is not enabled.
	ErrNotEncrypted = errors.New("encryption is not enabled")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
