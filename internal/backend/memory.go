package backend

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
)

// Memory is an in-process Backend. It is used for tests and for the
// "memory" storage driver, where nothing survives the process.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	quota  int
	closed bool
}

// MemoryOption configures a Memory backend.
type MemoryOption func(*Memory)

// WithQuota caps the total number of bytes (keys plus values) the backend
// will hold. Writes that would go over it fail with errors.ErrQuotaExceeded.
// Zero means unlimited.
func WithQuota(bytes int) MemoryOption {
	return func(m *Memory) {
		m.quota = bytes
	}
}

// NewMemory returns an empty in-memory backend.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{data: make(map[string][]byte)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, storageErr("get", errClosed)
	}

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

func (m *Memory) Put(key string, value []byte) error {
	return m.Apply([]Op{Put(key, value)})
}

func (m *Memory) Delete(key string) error {
	return m.Apply([]Op{Delete(key)})
}

func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, storageErr("keys", errClosed)
	}

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Apply checks the quota against the state the whole batch would produce
// before touching anything.
func (m *Memory) Apply(ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return storageErr("apply", errClosed)
	}

	if m.quota > 0 {
		if size := m.sizeAfter(ops); size > m.quota {
			return fmt.Errorf("apply: %w (%d of %d bytes)", kerrors.ErrQuotaExceeded, size, m.quota)
		}
	}

	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			m.data[op.Key] = cloneBytes(op.Value)
		case OpDelete:
			delete(m.data, op.Key)
		}
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Size returns the number of bytes currently held (keys plus values).
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sizeAfter(nil)
}

func (m *Memory) sizeAfter(ops []Op) int {
	pending := make(map[string][]byte, len(ops))
	deleted := make(map[string]bool, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			pending[op.Key] = op.Value
			delete(deleted, op.Key)
		case OpDelete:
			delete(pending, op.Key)
			deleted[op.Key] = true
		}
	}

	total := 0
	for k, v := range m.data {
		if _, replaced := pending[k]; replaced || deleted[k] {
			continue
		}
		total += len(k) + len(v)
	}
	for k, v := range pending {
		total += len(k) + len(v)
	}
	return total
}

var errClosed = fmt.Errorf("backend is closed")

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
