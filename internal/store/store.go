package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PolarWolf314/coffer/internal/backend"
	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/secrets"
)

// DefaultPrefix namespaces every record set key in the backend.
const DefaultPrefix = "financeTracker_"

// KeySource supplies the currently installed key. A nil key means the store
// reads and writes plaintext.
type KeySource interface {
	Key() *secrets.Key
}

// WriteGate is implemented by key sources that can refuse writes. While
// Writable is false every mutating Store method fails with errors.ErrLocked.
type WriteGate interface {
	Writable() bool
}

// Status tags the outcome of a Lookup.
type Status int

const (
	// Absent means nothing is stored under the name.
	Absent Status = iota
	// Unreadable means an entry exists but cannot be decoded under the current key.
	Unreadable
	// Present means the entry was decoded.
	Present
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Unreadable:
		return "unreadable"
	case Present:
		return "present"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the tagged outcome of reading one record set.
type Result struct {
	Status Status
	// Value holds the decoded JSON when Status is Present.
	Value json.RawMessage
	// Err explains why the entry is Unreadable.
	Err error
}

// EntryState is the physical form of a stored entry, known without a key.
type EntryState int

const (
	EntryAbsent EntryState = iota
	EntryPlaintext
	EntryEncrypted
)

func (s EntryState) String() string {
	switch s {
	case EntryAbsent:
		return "absent"
	case EntryPlaintext:
		return "plaintext"
	case EntryEncrypted:
		return "encrypted"
	default:
		return fmt.Sprintf("EntryState(%d)", int(s))
	}
}

// EntryInfo describes one stored record set.
type EntryInfo struct {
	Name  string
	State EntryState
	Size  int
}

// EditFunc may rewrite a decoded value during a re-encryption sweep.
type EditFunc func(name string, value json.RawMessage) (json.RawMessage, error)

// Store maps record set names to JSON values kept in a Backend. Every read
// and write goes through the key reported by its KeySource.
type Store struct {
	backend backend.Backend
	keys    KeySource
	prefix  string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New returns a Store over b that reads its key from keys.
func New(b backend.Backend, keys KeySource, opts ...Option) *Store {
	s := &Store{backend: b, keys: keys, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prefix returns the key namespace in use.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key() *secrets.Key {
	if s.keys == nil {
		return nil
	}
	return s.keys.Key()
}

// writable returns errors.ErrLocked when the key source refuses writes.
func (s *Store) writable() error {
	if g, ok := s.keys.(WriteGate); ok && !g.Writable() {
		return kerrors.ErrLocked
	}
	return nil
}

// Encrypting reports whether a key is installed, meaning writes are encrypted.
func (s *Store) Encrypting() bool {
	return s.key() != nil
}

// Lookup reads name and reports whether it is absent, unreadable or present.
// It never returns an error for decryption or JSON problems; those become
// Unreadable.
func (s *Store) Lookup(name string) Result {
	raw, ok, err := s.backend.Get(s.prefix + name)
	if err != nil {
		return Result{Status: Unreadable, Err: err}
	}
	if !ok {
		return Result{Status: Absent}
	}

	value, err := decode(raw, s.key())
	if err != nil {
		return Result{Status: Unreadable, Err: err}
	}
	return Result{Status: Present, Value: value}
}

// Get returns the decoded value of name, or nil when it is absent or unreadable.
func (s *Store) Get(name string) json.RawMessage {
	r := s.Lookup(name)
	if r.Status != Present {
		return nil
	}
	return r.Value
}

// Load decodes name into v. An absent entry leaves v untouched and returns
// (Absent, nil). An unreadable entry returns errors.ErrDataUnavailable.
func (s *Store) Load(name string, v any) (Status, error) {
	r := s.Lookup(name)
	switch r.Status {
	case Absent:
		return Absent, nil
	case Unreadable:
		return Unreadable, fmt.Errorf("%s: %w: %v", name, kerrors.ErrDataUnavailable, r.Err)
	}

	if err := json.Unmarshal(r.Value, v); err != nil {
		return Present, fmt.Errorf("%w: decoding %s: %v", kerrors.ErrSerialization, name, err)
	}
	return Present, nil
}

// Set serializes v, encrypts it if a key is installed and persists it.
func (s *Store) Set(name string, v any) error {
	if err := s.writable(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := validName(name); err != nil {
		return err
	}

	value, err := marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	stored, err := encode(value, s.key())
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	if err := s.backend.Put(s.prefix+name, stored); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Remove deletes name. Removing an absent name is not an error.
func (s *Store) Remove(name string) error {
	if err := s.writable(); err != nil {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	if err := s.backend.Delete(s.prefix + name); err != nil {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

// ListNames returns every record set name under the prefix, sorted.
func (s *Store) ListNames() ([]string, error) {
	keys, err := s.backend.Keys(s.prefix)
	if err != nil {
		return nil, fmt.Errorf("listing record sets: %w", err)
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if name := strings.TrimPrefix(k, s.prefix); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Inspect reports the physical state of name without needing a key.
func (s *Store) Inspect(name string) (EntryState, error) {
	raw, ok, err := s.backend.Get(s.prefix + name)
	if err != nil {
		return EntryAbsent, fmt.Errorf("inspecting %s: %w", name, err)
	}
	return entryState(raw, ok), nil
}

// Describe reports the physical state and stored size of every record set.
func (s *Store) Describe() ([]EntryInfo, error) {
	names, err := s.ListNames()
	if err != nil {
		return nil, err
	}

	infos := make([]EntryInfo, 0, len(names))
	for _, name := range names {
		raw, ok, err := s.backend.Get(s.prefix + name)
		if err != nil {
			return nil, fmt.Errorf("inspecting %s: %w", name, err)
		}
		infos = append(infos, EntryInfo{Name: name, State: entryState(raw, ok), Size: len(raw)})
	}
	return infos, nil
}

// ExportAll returns the decoded value of every record set. It fails with
// errors.ErrDataUnavailable if any of them cannot be read, so a backup is
// never silently missing data.
func (s *Store) ExportAll() (map[string]json.RawMessage, error) {
	names, err := s.ListNames()
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		r := s.Lookup(name)
		switch r.Status {
		case Present:
			out[name] = r.Value
		case Unreadable:
			return nil, fmt.Errorf("%s: %w: %v", name, kerrors.ErrDataUnavailable, r.Err)
		}
	}
	return out, nil
}

// ImportAll writes every entry in records under the current key. All values
// are validated first and committed in one batch, so a bad value writes nothing.
func (s *Store) ImportAll(records map[string]json.RawMessage) error {
	if err := s.writable(); err != nil {
		return fmt.Errorf("importing record sets: %w", err)
	}
	ops, err := s.putOps(records, s.key())
	if err != nil {
		return err
	}

	if err := s.backend.Apply(ops); err != nil {
		return fmt.Errorf("importing record sets: %w", err)
	}
	return nil
}

// ReplaceAll makes records the complete contents of the store in one batch.
// Record sets missing from records are removed, except known ones, which
// are reset to their defaults.
func (s *Store) ReplaceAll(records map[string]json.RawMessage) error {
	if err := s.writable(); err != nil {
		return fmt.Errorf("replacing record sets: %w", err)
	}
	key := s.key()

	existing, err := s.ListNames()
	if err != nil {
		return err
	}

	var ops []backend.Op
	for _, name := range existing {
		if _, ok := records[name]; !ok && !IsKnown(name) {
			ops = append(ops, backend.Delete(s.prefix+name))
		}
	}
	for _, name := range KnownNames {
		if _, ok := records[name]; ok {
			continue
		}
		op, err := s.defaultOp(name, key)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	puts, err := s.putOps(records, key)
	if err != nil {
		return err
	}
	ops = append(ops, puts...)

	if err := s.backend.Apply(ops); err != nil {
		return fmt.Errorf("replacing record sets: %w", err)
	}
	return nil
}

func (s *Store) putOps(records map[string]json.RawMessage, key *secrets.Key) ([]backend.Op, error) {
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	ops := make([]backend.Op, 0, len(names))
	for _, name := range names {
		if err := validName(name); err != nil {
			return nil, err
		}

		value, err := marshal(records[name])
		if err != nil {
			return nil, fmt.Errorf("importing %s: %w", name, err)
		}

		stored, err := encode(value, key)
		if err != nil {
			return nil, fmt.Errorf("importing %s: %w", name, err)
		}
		ops = append(ops, backend.Put(s.prefix+name, stored))
	}
	return ops, nil
}

// ClearAll resets every known record set to its default and removes unknown
// ones. settings.encryptionEnabled keeps reflecting the installed key.
func (s *Store) ClearAll() error {
	if err := s.writable(); err != nil {
		return fmt.Errorf("clearing record sets: %w", err)
	}
	key := s.key()

	names, err := s.ListNames()
	if err != nil {
		return err
	}

	var ops []backend.Op
	for _, name := range names {
		if !IsKnown(name) {
			ops = append(ops, backend.Delete(s.prefix+name))
		}
	}

	for _, name := range KnownNames {
		op, err := s.defaultOp(name, key)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	if err := s.backend.Apply(ops); err != nil {
		return fmt.Errorf("clearing record sets: %w", err)
	}
	return nil
}

// EnsureDefaults creates every known record set that is absent. It returns
// the names it created.
func (s *Store) EnsureDefaults() ([]string, error) {
	if err := s.writable(); err != nil {
		return nil, fmt.Errorf("creating defaults: %w", err)
	}
	key := s.key()

	var (
		ops     []backend.Op
		created []string
	)
	for _, name := range KnownNames {
		_, ok, err := s.backend.Get(s.prefix + name)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", name, err)
		}
		if ok {
			continue
		}

		op, err := s.defaultOp(name, key)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		created = append(created, name)
	}

	if len(ops) == 0 {
		return nil, nil
	}
	if err := s.backend.Apply(ops); err != nil {
		return nil, fmt.Errorf("creating defaults: %w", err)
	}
	return created, nil
}

// Reencrypt decodes every record set under from and writes it back under to.
// A nil key means plaintext on either side. edit, if non-nil, may rewrite
// each decoded value before it is encoded.
//
// Every entry is decoded and re-encoded in memory first. The results are then
// committed in one backend batch. If any entry fails, storage is left untouched.
func (s *Store) Reencrypt(from, to *secrets.Key, edit EditFunc) (int, error) {
	if err := s.writable(); err != nil {
		return 0, fmt.Errorf("re-encrypting: %w", err)
	}
	names, err := s.ListNames()
	if err != nil {
		return 0, err
	}

	ops := make([]backend.Op, 0, len(names))
	for _, name := range names {
		raw, ok, err := s.backend.Get(s.prefix + name)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", name, err)
		}
		if !ok {
			continue
		}

		value, err := decode(raw, from)
		if err != nil {
			return 0, fmt.Errorf("re-encrypting %s: %w", name, err)
		}

		if edit != nil {
			if value, err = edit(name, value); err != nil {
				return 0, fmt.Errorf("re-encrypting %s: %w", name, err)
			}
		}

		stored, err := encode(value, to)
		if err != nil {
			return 0, fmt.Errorf("re-encrypting %s: %w", name, err)
		}
		ops = append(ops, backend.Put(s.prefix+name, stored))
	}

	if len(ops) == 0 {
		return 0, nil
	}
	if err := s.backend.Apply(ops); err != nil {
		return 0, fmt.Errorf("committing re-encryption: %w", err)
	}
	return len(ops), nil
}

// Raw returns the stored bytes of name exactly as persisted.
func (s *Store) Raw(name string) ([]byte, bool, error) {
	return s.backend.Get(s.prefix + name)
}

func (s *Store) defaultOp(name string, key *secrets.Key) (backend.Op, error) {
	value, _ := Default(name)
	if name == Settings {
		var err error
		if value, err = WithEncryptionFlag(value, key != nil); err != nil {
			return backend.Op{}, err
		}
	}

	stored, err := encode(value, key)
	if err != nil {
		return backend.Op{}, fmt.Errorf("encoding default %s: %w", name, err)
	}
	return backend.Put(s.prefix+name, stored), nil
}

func entryState(raw []byte, ok bool) EntryState {
	switch {
	case !ok:
		return EntryAbsent
	case secrets.IsEnvelope(raw):
		return EntryEncrypted
	default:
		return EntryPlaintext
	}
}

// decode turns stored bytes into JSON. With a key the bytes must be an
// envelope. Without one they must be plaintext JSON.
func decode(raw []byte, key *secrets.Key) (json.RawMessage, error) {
	var plain []byte
	if key != nil {
		var err error
		if plain, err = secrets.Decrypt(key, string(raw)); err != nil {
			return nil, err
		}
	} else {
		if secrets.IsEnvelope(raw) {
			return nil, fmt.Errorf("%w: entry is encrypted and no key is installed", kerrors.ErrDecryption)
		}
		plain = raw
	}

	if !json.Valid(plain) {
		return nil, fmt.Errorf("%w: stored value is not valid JSON", kerrors.ErrSerialization)
	}
	return json.RawMessage(plain), nil
}

func encode(value json.RawMessage, key *secrets.Key) ([]byte, error) {
	if key == nil {
		return value, nil
	}

	envelope, err := secrets.Encrypt(key, value)
	if err != nil {
		return nil, err
	}
	return []byte(envelope), nil
}

// marshal serializes v and makes sure the result is an object or an array.
// Plaintext detection depends on that.
func marshal(v any) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	switch val := v.(type) {
	case json.RawMessage:
		data = val
	case []byte:
		data = val
	default:
		if data, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrSerialization, err)
		}
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: value is not valid JSON", kerrors.ErrSerialization)
	}

	compact := strings.TrimSpace(string(data))
	if !strings.HasPrefix(compact, "{") && !strings.HasPrefix(compact, "[") {
		return nil, fmt.Errorf("%w: value must be a JSON object or array", kerrors.ErrSerialization)
	}
	return json.RawMessage(compact), nil
}

func validName(name string) error {
	if name == "" || strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: invalid record set name %q", kerrors.ErrValidation, name)
	}
	return nil
}
