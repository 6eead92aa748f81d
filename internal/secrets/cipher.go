package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
)

// NonceSize is the length of the random nonce prepended to every envelope.
const NonceSize = 12

// randReader is the nonce source. Tests may replace it.
var randReader io.Reader = rand.Reader

// Encrypt seals plaintext under key and returns the envelope:
// base64(nonce || ciphertext). Every call uses a fresh random nonce.
func Encrypt(key *Key, plaintext []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt. Any failure, including a
// wrong key, a truncated or tampered envelope, or plaintext JSON passed in
// by mistake, is reported as ErrDecryption.
func Decrypt(key *Key, envelope string) ([]byte, error) {
	if !IsEnvelope([]byte(envelope)) {
		return nil, fmt.Errorf("%w: value is plaintext, not an envelope", kerrors.ErrDecryption)
	}

	data, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", kerrors.ErrDecryption, err)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(data) < NonceSize+aead.Overhead() {
		return nil, fmt.Errorf("%w: envelope too short", kerrors.ErrDecryption)
	}

	nonce, ciphertext := data[:NonceSize], data[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryption, err)
	}

	return plaintext, nil
}

// IsEnvelope reports whether raw looks like an envelope rather than plaintext
// JSON. Record values are always objects or arrays, and base64 text never
// starts with '{' or '['.
func IsEnvelope(raw []byte) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return false
		default:
			return true
		}
	}
	return false
}

func newAEAD(key *Key) (cipher.AEAD, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: no key supplied", kerrors.ErrDecryption)
	}

	block, err := aes.NewCipher(key.b[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}

	return aead, nil
}
