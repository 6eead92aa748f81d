// Package secrets provides the cryptographic primitives for coffer.
//
// It has two halves: key derivation and envelope encryption. Neither half
// keeps state. Keys are always passed explicitly.
//
// # Key Derivation
//
// Passwords are stretched with PBKDF2-HMAC-SHA256 into a 32-byte key:
//
//	key, err := secrets.KDF{Iterations: 100_000}.Derive(password)
//
// The salt is a fixed application-wide constant (Salt). The same password
// therefore always reproduces the same key, and unlocking existing data needs
// nothing but the password. This gives up salt uniqueness across separate
// installations. Nothing is stored besides the encrypted records themselves.
//
// # Envelope Format
//
// Encrypt uses AES-256-GCM with a random 12-byte nonce prepended to the
// ciphertext, and encodes the whole thing as standard base64:
//
//	base64( nonce[12] || ciphertext || tag[16] )
//
// Re-encrypting the same plaintext produces different output.
//
// # Failure Semantics
//
// Decrypt never returns garbage. A wrong key, a tampered or truncated envelope,
// or a plaintext value all fail with errors.ErrDecryption. Password
// verification relies on this: a successful Decrypt of a known record is the
// only proof that a password is correct. No password hash is ever stored.
//
// # Security Considerations
//
// Key.String redacts key material, so keys are safe to pass through
// formatted logging by accident. Keys live in memory only.
package secrets
