package secrets

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"unicode/utf8"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the length of a derived key in bytes (AES-256).
	KeySize = 32

	// DefaultIterations is the PBKDF2 iteration count used when none is configured.
	DefaultIterations = 100_000

	// MinIterations is the lowest iteration count accepted.
	MinIterations = 1_000
)

// Salt is the fixed, application-wide PBKDF2 salt.
//
// A fixed salt lets the same password reproduce the same key without storing
// any per-installation metadata next to the encrypted records. Changing this
// value makes every existing encrypted store unreadable.
var Salt = []byte("coffer.finance-tracker.v1")

// Key is a derived symmetric key. The zero value is not a usable key.
type Key struct {
	b [KeySize]byte
}

// KeyFromBytes copies raw into a new Key. raw must be exactly KeySize bytes.
func KeyFromBytes(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("invalid key length: expected %d bytes, got %d bytes", KeySize, len(raw))
	}
	k := &Key{}
	copy(k.b[:], raw)
	return k, nil
}

// Equal reports whether k and other hold the same key material.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.b[:], other.b[:]) == 1
}

// String never prints key material.
func (k *Key) String() string {
	return "secrets.Key([redacted])"
}

// GoString never prints key material.
func (k *Key) GoString() string {
	return k.String()
}

// KDF derives keys from passwords with PBKDF2-HMAC-SHA256 and the fixed Salt.
type KDF struct {
	// Iterations is the PBKDF2 iteration count. Values below MinIterations are raised to it.
	Iterations int
}

// DeriveKey derives a key from password with the default iteration count.
func DeriveKey(password string) (*Key, error) {
	return KDF{Iterations: DefaultIterations}.Derive(password)
}

// Derive turns password into a key. The same password and iteration count
// always yield the same key.
func (d KDF) Derive(password string) (*Key, error) {
	if password == "" {
		return nil, kerrors.ErrEmptyPassword
	}
	if !utf8.ValidString(password) {
		return nil, fmt.Errorf("%w: password is not valid UTF-8", kerrors.ErrValidation)
	}

	iterations := d.Iterations
	if iterations < MinIterations {
		iterations = MinIterations
	}

	raw := pbkdf2.Key([]byte(password), Salt, iterations, KeySize, sha256.New)
	return KeyFromBytes(raw)
}
