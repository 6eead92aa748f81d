package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/coffer/internal/audit"
	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/secrets"
)

// Audit operation names.
const (
	OpUnlock            = "unlock"
	OpEnableEncryption  = "encryption-enable"
	OpDisableEncryption = "encryption-disable"
	OpChangePassword    = "passwd"
)

var errNoPrompter = errors.New("no password prompt available")

// ErrSweepFailed wraps the storage error when re-encrypting every record set
// fails. Nothing was changed and the user has already been told.
var ErrSweepFailed = errors.New("re-encrypting record sets")

// Unlock runs the startup flow: prompt, derive, verify, and re-prompt until
// the password is right, the user cancels, or attempts run out.
// It is a no-op when the session is already unlocked.
func (s *Session) Unlock(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	for {
		switch s.State() {
		case UnlockedPlain, UnlockedEncrypted:
			return nil
		case AppLocked:
			return kerrors.ErrAppLocked
		}

		message := fmt.Sprintf("Enter password to unlock (%d %s remaining): ", s.RemainingAttempts(), plural(s.RemainingAttempts(), "attempt"))
		password, err := s.prompt(ctx, message)
		if err != nil {
			s.record(OpUnlock, audit.OutcomeCancelled, 0, nil)
			return err
		}

		err = s.attempt(ctx, password)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, kerrors.ErrWrongPassword), errors.Is(err, kerrors.ErrValidation):
			continue
		default:
			return err
		}
	}
}

// TryUnlock makes one counted unlock attempt with password.
func (s *Session) TryUnlock(ctx context.Context, password string) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	switch s.State() {
	case UnlockedPlain, UnlockedEncrypted:
		return nil
	case AppLocked:
		return kerrors.ErrAppLocked
	}
	return s.attempt(ctx, password)
}

// attempt verifies password and installs its key. A wrong password counts
// against the limit. The caller holds the in-flight slot.
func (s *Session) attempt(ctx context.Context, password string) error {
	key, err := s.DeriveKey(password)
	if err != nil {
		s.notify(SeverityError, passwordProblem(err))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.VerifyPassword(key) {
		s.mu.Lock()
		s.failures++
		exhausted := s.failures >= s.opts.MaxAttempts
		if exhausted {
			s.state = AppLocked
		}
		s.mu.Unlock()

		if exhausted {
			s.notify(SeverityError, "Too many failed attempts. Restart coffer to try again.")
			s.record(OpUnlock, audit.OutcomeFailure, 0, kerrors.ErrAppLocked)
			return kerrors.ErrAppLocked
		}

		remaining := s.RemainingAttempts()
		s.notify(SeverityError, fmt.Sprintf("Incorrect password. %d %s remaining.", remaining, plural(remaining, "attempt")))
		s.record(OpUnlock, audit.OutcomeFailure, 0, kerrors.ErrWrongPassword)
		return fmt.Errorf("%w: %d %s remaining", kerrors.ErrWrongPassword, remaining, plural(remaining, "attempt"))
	}

	s.slot.set(key)
	s.mu.Lock()
	s.state = UnlockedEncrypted
	s.failures = 0
	s.mu.Unlock()

	s.checkFlag(true)
	if created, err := s.store.EnsureDefaults(); err != nil {
		s.opts.Logger.Warnf("Could not create default record sets: %v", err)
	} else if len(created) > 0 {
		s.opts.Logger.Infof("Created default record sets: %v", created)
	}

	s.opts.Logger.Debugf("Session unlocked")
	s.record(OpUnlock, audit.OutcomeSuccess, 0, nil)
	return nil
}

// EnableEncryption asks for a new password twice and re-encrypts every
// record set under its key. The key is installed only once the rewritten
// data and settings.encryptionEnabled=true are committed together.
func (s *Session) EnableEncryption(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if err := s.require(UnlockedPlain); err != nil {
		return err
	}

	key, err := s.promptNewKey(ctx, OpEnableEncryption,
		"Enter a password to encrypt your data: ",
		"Confirm password: ")
	if err != nil {
		return err
	}

	return s.sweep(ctx, OpEnableEncryption, nil, key, true, UnlockedEncrypted, "Encryption enabled.")
}

// DisableEncryption asks for the current password and rewrites every record
// set as plaintext with settings.encryptionEnabled=false.
func (s *Session) DisableEncryption(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if err := s.require(UnlockedEncrypted); err != nil {
		return err
	}

	key, err := s.promptCurrentKey(ctx, OpDisableEncryption, "Enter your password to disable encryption: ")
	if err != nil {
		return err
	}

	return s.sweep(ctx, OpDisableEncryption, key, nil, false, UnlockedPlain, "Encryption disabled. Your data is now stored unencrypted.")
}

// ChangePassword verifies the current password, asks for a new one twice and
// re-encrypts every record set under the new key.
func (s *Session) ChangePassword(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if err := s.require(UnlockedEncrypted); err != nil {
		return err
	}

	oldKey, err := s.promptCurrentKey(ctx, OpChangePassword, "Enter your current password: ")
	if err != nil {
		return err
	}

	newKey, err := s.promptNewKey(ctx, OpChangePassword,
		"Enter a new password: ",
		"Confirm new password: ")
	if err != nil {
		return err
	}

	return s.sweep(ctx, OpChangePassword, oldKey, newKey, true, UnlockedEncrypted, "Password changed.")
}

// sweep re-encrypts everything from one key to another, writing the flag in
// the same batch, and only then installs to and moves to next.
func (s *Session) sweep(ctx context.Context, op string, from, to *secrets.Key, flag bool, next State, done string) error {
	if err := ctx.Err(); err != nil {
		s.record(op, audit.OutcomeCancelled, 0, err)
		return err
	}

	count, err := s.store.Reencrypt(from, to, setFlag(flag))
	if err != nil {
		s.notify(SeverityError, "Could not re-encrypt your data. Nothing was changed.")
		s.record(op, audit.OutcomeFailure, 0, err)
		return fmt.Errorf("%w: %w", ErrSweepFailed, err)
	}

	s.slot.set(to)
	s.setState(next)

	s.opts.Logger.Infof("Re-encrypted %d record sets", count)
	s.notify(SeveritySuccess, done)
	s.record(op, audit.OutcomeSuccess, count, nil)
	return nil
}

// promptNewKey asks for a password and its confirmation and derives a key.
func (s *Session) promptNewKey(ctx context.Context, op, message, confirmMessage string) (*secrets.Key, error) {
	password, err := s.prompt(ctx, message)
	if err != nil {
		s.record(op, audit.OutcomeCancelled, 0, nil)
		return nil, err
	}

	confirm, err := s.prompt(ctx, confirmMessage)
	if err != nil {
		s.record(op, audit.OutcomeCancelled, 0, nil)
		return nil, err
	}

	if password == "" {
		s.notify(SeverityError, "Password must not be empty.")
		s.record(op, audit.OutcomeFailure, 0, kerrors.ErrEmptyPassword)
		return nil, kerrors.ErrEmptyPassword
	}
	if password != confirm {
		s.notify(SeverityError, "Passwords do not match.")
		s.record(op, audit.OutcomeFailure, 0, kerrors.ErrPasswordMismatch)
		return nil, kerrors.ErrPasswordMismatch
	}

	key, err := s.DeriveKey(password)
	if err != nil {
		s.notify(SeverityError, passwordProblem(err))
		s.record(op, audit.OutcomeFailure, 0, err)
		return nil, err
	}
	return key, nil
}

// promptCurrentKey asks for the current password and checks it against stored data.
func (s *Session) promptCurrentKey(ctx context.Context, op, message string) (*secrets.Key, error) {
	password, err := s.prompt(ctx, message)
	if err != nil {
		s.record(op, audit.OutcomeCancelled, 0, nil)
		return nil, err
	}

	key, err := s.DeriveKey(password)
	if err != nil || !s.VerifyPassword(key) {
		s.notify(SeverityError, "Incorrect password.")
		s.record(op, audit.OutcomeFailure, 0, kerrors.ErrWrongPassword)
		return nil, kerrors.ErrWrongPassword
	}
	return key, nil
}

func (s *Session) prompt(ctx context.Context, message string) (string, error) {
	if s.opts.Prompter == nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrCancelled, errNoPrompter)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	password, err := s.opts.Prompter.PromptPassword(ctx, message)
	if err != nil {
		if errors.Is(err, kerrors.ErrCancelled) {
			s.notify(SeverityInfo, "Cancelled.")
		}
		return "", err
	}
	return password, nil
}

// require checks that the session is in want before a flow starts.
func (s *Session) require(want State) error {
	state := s.State()
	if state == want {
		return nil
	}

	switch state {
	case Locked:
		return kerrors.ErrLocked
	case AppLocked:
		return kerrors.ErrAppLocked
	case UnlockedEncrypted:
		return kerrors.ErrAlreadyEncrypted
	default:
		return kerrors.ErrNotEncrypted
	}
}

func passwordProblem(err error) string {
	if errors.Is(err, kerrors.ErrEmptyPassword) {
		return "Password must not be empty."
	}
	return "Password could not be used: it must be valid UTF-8 text."
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
