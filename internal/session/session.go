package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/PolarWolf314/coffer/internal/audit"
	"github.com/PolarWolf314/coffer/internal/backend"
	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	logger "github.com/PolarWolf314/coffer/internal/logging"
	"github.com/PolarWolf314/coffer/internal/secrets"
	"github.com/PolarWolf314/coffer/internal/store"
)

// DefaultMaxAttempts is the number of wrong passwords tolerated at unlock.
const DefaultMaxAttempts = 3

// State is where the session is in its lifecycle.
type State int

const (
	// Locked means stored data is encrypted and no key is installed yet.
	Locked State = iota
	// UnlockedPlain means stored data is plaintext and no key is installed.
	UnlockedPlain
	// UnlockedEncrypted means stored data is encrypted and its key is installed.
	UnlockedEncrypted
	// AppLocked means unlock attempts ran out. Only a restart leaves it.
	AppLocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case UnlockedPlain:
		return "unlocked-plain"
	case UnlockedEncrypted:
		return "unlocked-encrypted"
	case AppLocked:
		return "app-locked"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Severity classifies a notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Prompter asks the user for a password. Returning errors.ErrCancelled
// means the user declined.
type Prompter interface {
	PromptPassword(ctx context.Context, message string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, message string) (string, error)

func (f PrompterFunc) PromptPassword(ctx context.Context, message string) (string, error) {
	return f(ctx, message)
}

// Notifier shows short notices to the user.
type Notifier interface {
	Notify(severity Severity, message string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Severity, string) {}

// Options configures a Session.
type Options struct {
	Prompter Prompter
	Notifier Notifier
	Logger   logger.Logger
	Audit    audit.Sink

	// KDF holds the key derivation parameters.
	KDF secrets.KDF

	// Prefix namespaces the record sets. Defaults to store.DefaultPrefix.
	Prefix string

	// MaxAttempts bounds failed unlock attempts. Defaults to DefaultMaxAttempts.
	MaxAttempts int
}

// keySlot holds the installed key. The session is its only writer.
// While locked the store refuses every write.
type keySlot struct {
	mu     sync.RWMutex
	key    *secrets.Key
	locked bool
}

func (k *keySlot) Key() *secrets.Key {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key
}

func (k *keySlot) Writable() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return !k.locked
}

// set installs key and lifts the write lock.
func (k *keySlot) set(key *secrets.Key) {
	k.mu.Lock()
	k.key = key
	k.locked = false
	k.mu.Unlock()
}

func (k *keySlot) lock() {
	k.mu.Lock()
	k.locked = true
	k.mu.Unlock()
}

// Session owns the encryption key and runs every flow that changes whether
// or how stored data is encrypted.
type Session struct {
	store *store.Store
	slot  *keySlot
	opts  Options

	mu       sync.RWMutex
	state    State
	failures int

	busy atomic.Bool
}

// Open inspects the stored settings and returns a session in Locked or
// UnlockedPlain state. In UnlockedPlain any missing record sets are created.
func Open(b backend.Backend, opts Options) (*Session, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.KDF.Iterations == 0 {
		opts.KDF.Iterations = secrets.DefaultIterations
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Audit == nil {
		opts.Audit = audit.Discard
	}
	if opts.Prefix == "" {
		opts.Prefix = store.DefaultPrefix
	}

	slot := &keySlot{}
	s := &Session{
		store: store.New(b, slot, store.WithPrefix(opts.Prefix)),
		slot:  slot,
		opts:  opts,
	}

	encrypted, err := s.storedEncrypted()
	if err != nil {
		return nil, err
	}

	if encrypted {
		s.state = Locked
		slot.lock()
		s.opts.Logger.Debugf("Stored data is encrypted, session starts locked")
		return s, nil
	}

	s.state = UnlockedPlain
	s.checkFlag(false)

	created, err := s.store.EnsureDefaults()
	if err != nil {
		return nil, fmt.Errorf("creating default record sets: %w", err)
	}
	if len(created) > 0 {
		s.opts.Logger.Infof("Created default record sets: %v", created)
	}
	return s, nil
}

// storedEncrypted reports whether the store is physically encrypted.
// settings decides when present. Otherwise any encrypted entry does.
func (s *Session) storedEncrypted() (bool, error) {
	state, err := s.store.Inspect(store.Settings)
	if err != nil {
		return false, err
	}
	switch state {
	case store.EntryEncrypted:
		return true, nil
	case store.EntryPlaintext:
		if ref, err := s.firstEncrypted(); err != nil {
			return false, err
		} else if ref != "" {
			s.notify(SeverityWarning, fmt.Sprintf("Found encrypted record set %q next to unencrypted settings. It cannot be read until encryption state is repaired.", ref))
		}
		return false, nil
	}

	ref, err := s.firstEncrypted()
	if err != nil {
		return false, err
	}
	return ref != "", nil
}

// checkFlag warns when settings.encryptionEnabled disagrees with the
// physical state of the store. The physical state wins.
func (s *Session) checkFlag(physical bool) {
	raw := s.store.Get(store.Settings)
	if raw == nil {
		return
	}

	flag, err := store.EncryptionFlag(raw)
	if err != nil {
		s.opts.Logger.Warnf("Could not read settings: %v", err)
		return
	}
	if flag == physical {
		return
	}

	if flag {
		s.notify(SeverityWarning, "Settings say encryption is enabled, but stored data is not encrypted. Treating data as unencrypted.")
	} else {
		s.notify(SeverityWarning, "Settings say encryption is disabled, but stored data is encrypted. Treating data as encrypted.")
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RemainingAttempts returns how many wrong passwords unlock still tolerates.
func (s *Session) RemainingAttempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if remaining := s.opts.MaxAttempts - s.failures; remaining > 0 {
		return remaining
	}
	return 0
}

// MaxAttempts returns the configured attempt limit.
func (s *Session) MaxAttempts() int {
	return s.opts.MaxAttempts
}

// Store returns the record store bound to this session's key.
func (s *Session) Store() *store.Store {
	return s.store
}

// Encrypted reports whether a key is installed.
func (s *Session) Encrypted() bool {
	return s.slot.Key() != nil
}

// DeriveKey derives a key from password with the session's parameters.
func (s *Session) DeriveKey(password string) (*secrets.Key, error) {
	return s.opts.KDF.Derive(password)
}

// VerifyPassword reports whether key opens the stored data. The reference is
// settings when it is encrypted, else the first encrypted record set. With
// no encrypted data at all there is nothing to check against, and any key
// verifies.
func (s *Session) VerifyPassword(key *secrets.Key) bool {
	ref, err := s.referenceName()
	if err != nil {
		s.opts.Logger.Debugf("Could not find verification reference: %v", err)
		return false
	}
	if ref == "" {
		return true
	}

	raw, ok, err := s.store.Raw(ref)
	if err != nil || !ok {
		return false
	}

	_, err = secrets.Decrypt(key, string(raw))
	return err == nil
}

func (s *Session) referenceName() (string, error) {
	state, err := s.store.Inspect(store.Settings)
	if err != nil {
		return "", err
	}
	if state == store.EntryEncrypted {
		return store.Settings, nil
	}
	return s.firstEncrypted()
}

func (s *Session) firstEncrypted() (string, error) {
	infos, err := s.store.Describe()
	if err != nil {
		return "", err
	}
	for _, info := range infos {
		if info.State == store.EntryEncrypted {
			return info.Name, nil
		}
	}
	return "", nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// begin claims the single in-flight slot for a state-changing flow.
func (s *Session) begin() error {
	if !s.busy.CompareAndSwap(false, true) {
		return kerrors.ErrBusy
	}
	return nil
}

func (s *Session) end() {
	s.busy.Store(false)
}

func (s *Session) notify(severity Severity, message string) {
	s.opts.Notifier.Notify(severity, message)
}

func (s *Session) record(op, outcome string, count int, detail error) {
	entry := audit.Entry{
		Operation:  op,
		Outcome:    outcome,
		State:      s.State().String(),
		NamesCount: count,
	}
	if detail != nil {
		entry.Detail = detail.Error()
	}
	s.opts.Audit.Log(entry)
}

func setFlag(enabled bool) store.EditFunc {
	return func(name string, value json.RawMessage) (json.RawMessage, error) {
		if name != store.Settings {
			return value, nil
		}
		return store.WithEncryptionFlag(value, enabled)
	}
}
