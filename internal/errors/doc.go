// Package errors provides typed error values for coffer.
//
// Using sentinel errors lets callers handle specific conditions with
// errors.Is() instead of string matching.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Crypto errors: envelope or password failures (ErrDecryption, ErrWrongPassword)
//   - Data errors: record content issues (ErrSerialization, ErrDataUnavailable, ErrNotFound)
//   - Storage errors: backend failures (ErrStorage, ErrQuotaExceeded)
//   - Validation errors: rejected input (ErrValidation, ErrPasswordMismatch, ErrEmptyPassword)
//   - Session errors: flow/state conflicts (ErrLocked, ErrAppLocked, ErrBusy, ErrCancelled)
//
// # Usage
//
// Wrap storage failures with context:
//
//	return fmt.Errorf("writing %s: %w", name, errors.ErrStorage)
//
// Handle errors in the CLI layer:
//
//	if errors.Is(err, kerrors.ErrWrongPassword) {
//	    // Show user-friendly message
//	}
//
// ErrPasswordMismatch and ErrEmptyPassword wrap ErrValidation, so a check
// against ErrValidation matches both.
package errors
