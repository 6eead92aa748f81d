package backend

import (
	"fmt"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
)

// OpKind selects what an Op does.
type OpKind int

const (
	// OpPut writes Value under Key.
	OpPut OpKind = iota
	// OpDelete removes Key. Deleting a missing key is not an error.
	OpDelete
)

// Op is one write inside a batch passed to Apply.
type Op struct {
	Kind  OpKind
	Key   string
	Value []byte
}

// Put returns an Op that writes value under key.
func Put(key string, value []byte) Op {
	return Op{Kind: OpPut, Key: key, Value: value}
}

// Delete returns an Op that removes key.
func Delete(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

// Backend is a flat string-keyed byte store.
//
// Implementations must be safe for concurrent use. Every error they return
// wraps errors.ErrStorage.
type Backend interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)

	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns every stored key that starts with prefix, sorted.
	Keys(prefix string) ([]string, error)

	// Apply runs ops as one atomic batch: either all of them take effect or none do.
	Apply(ops []Op) error

	// Close releases any resources held by the backend.
	Close() error
}

func storageErr(op string, err error) error {
	if kerrors.Is(err, kerrors.ErrStorage) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, kerrors.ErrStorage, err)
}
