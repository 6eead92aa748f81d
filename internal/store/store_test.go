package store

import (
	"encoding/json"
	"testing"

	"github.com/PolarWolf314/coffer/internal/backend"
	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedKey is a KeySource whose key the test controls directly.
type fixedKey struct{ k *secrets.Key }

func (f *fixedKey) Key() *secrets.Key { return f.k }

// gatedKey is a KeySource that can refuse writes.
type gatedKey struct {
	fixedKey
	locked bool
}

func (g *gatedKey) Writable() bool { return !g.locked }

func deriveKey(t *testing.T, password string) *secrets.Key {
	t.Helper()
	k, err := secrets.KDF{Iterations: secrets.MinIterations}.Derive(password)
	require.NoError(t, err)
	return k
}

func newStore(t *testing.T) (*Store, *fixedKey, *backend.Memory) {
	t.Helper()
	mem := backend.NewMemory()
	keys := &fixedKey{}
	return New(mem, keys), keys, mem
}

func TestSetLookup_RoundTrip(t *testing.T) {
	values := map[string]any{
		Assets:   map[string]any{"assets": []any{map[string]any{"name": "Cash", "value": 1000.0}}, "history": []any{}},
		Expenses: []any{map[string]any{"amount": "12.50", "category": "Food"}},
		Settings: map[string]any{"encryptionEnabled": false, "currency": "EUR"},
		"custom": []any{1.0, "two", true, nil},
	}

	for _, encrypted := range []bool{false, true} {
		st, keys, _ := newStore(t)
		if encrypted {
			keys.k = deriveKey(t, "Secret123")
		}

		for name, v := range values {
			require.NoError(t, st.Set(name, v))

			r := st.Lookup(name)
			require.Equal(t, Present, r.Status, "encrypted=%v name=%s", encrypted, name)

			var got any
			require.NoError(t, json.Unmarshal(r.Value, &got))
			assert.Equal(t, v, got, "encrypted=%v name=%s", encrypted, name)
		}
	}
}

func TestSet_EncryptsWhenKeyInstalled(t *testing.T) {
	st, keys, mem := newStore(t)

	require.NoError(t, st.Set(Expenses, []string{"a"}))
	raw, _, _ := mem.Get(DefaultPrefix + Expenses)
	assert.JSONEq(t, `["a"]`, string(raw))

	keys.k = deriveKey(t, "pw")
	require.NoError(t, st.Set(Expenses, []string{"a"}))
	raw, _, _ = mem.Get(DefaultPrefix + Expenses)
	assert.True(t, secrets.IsEnvelope(raw))

	state, err := st.Inspect(Expenses)
	require.NoError(t, err)
	assert.Equal(t, EntryEncrypted, state)
}

func TestSet_RejectsBadValues(t *testing.T) {
	st, _, _ := newStore(t)

	assert.ErrorIs(t, st.Set(Settings, json.RawMessage(`{"broken"`)), kerrors.ErrSerialization)
	assert.ErrorIs(t, st.Set(Settings, "a string"), kerrors.ErrSerialization)
	assert.ErrorIs(t, st.Set(Settings, func() {}), kerrors.ErrSerialization)
	assert.ErrorIs(t, st.Set("", []int{}), kerrors.ErrValidation)
}

func TestSet_StorageFailure(t *testing.T) {
	mem := backend.NewMemory(backend.WithQuota(10))
	st := New(mem, &fixedKey{})

	err := st.Set(Expenses, []string{"far too much data for the quota"})
	assert.ErrorIs(t, err, kerrors.ErrStorage)
}

func TestLookup_Statuses(t *testing.T) {
	st, keys, mem := newStore(t)

	assert.Equal(t, Absent, st.Lookup(Goals).Status)
	assert.Nil(t, st.Get(Goals))

	// Encrypted entry with no key installed.
	keys.k = deriveKey(t, "pw")
	require.NoError(t, st.Set(Goals, []int{1}))
	keys.k = nil
	r := st.Lookup(Goals)
	assert.Equal(t, Unreadable, r.Status)
	assert.ErrorIs(t, r.Err, kerrors.ErrDecryption)
	assert.Nil(t, st.Get(Goals))

	// Wrong key.
	keys.k = deriveKey(t, "other")
	r = st.Lookup(Goals)
	assert.Equal(t, Unreadable, r.Status)
	assert.ErrorIs(t, r.Err, kerrors.ErrDecryption)

	// Plaintext while a key is installed is unreadable too.
	require.NoError(t, mem.Put(DefaultPrefix+Income, []byte(`[]`)))
	assert.Equal(t, Unreadable, st.Lookup(Income).Status)

	// Corrupt plaintext.
	keys.k = nil
	require.NoError(t, mem.Put(DefaultPrefix+Income, []byte(`[1,`)))
	r = st.Lookup(Income)
	assert.Equal(t, Unreadable, r.Status)
	assert.ErrorIs(t, r.Err, kerrors.ErrSerialization)
}

func TestLoad(t *testing.T) {
	st, keys, _ := newStore(t)

	var got []string
	status, err := st.Load(Expenses, &got)
	require.NoError(t, err)
	assert.Equal(t, Absent, status)

	require.NoError(t, st.Set(Expenses, []string{"x"}))
	status, err = st.Load(Expenses, &got)
	require.NoError(t, err)
	assert.Equal(t, Present, status)
	assert.Equal(t, []string{"x"}, got)

	var wrongShape map[string]any
	_, err = st.Load(Expenses, &wrongShape)
	assert.ErrorIs(t, err, kerrors.ErrSerialization)

	keys.k = deriveKey(t, "pw")
	status, err = st.Load(Expenses, &got)
	assert.Equal(t, Unreadable, status)
	assert.ErrorIs(t, err, kerrors.ErrDataUnavailable)
}

func TestListNamesAndRemove(t *testing.T) {
	st, _, mem := newStore(t)
	require.NoError(t, mem.Put("unrelated", []byte(`{}`)))

	for _, name := range []string{Settings, Assets, "zzz"} {
		require.NoError(t, st.Set(name, map[string]int{}))
	}

	names, err := st.ListNames()
	require.NoError(t, err)
	assert.Equal(t, []string{Assets, Settings, "zzz"}, names)

	require.NoError(t, st.Remove("zzz"))
	require.NoError(t, st.Remove("never-existed"))
	names, err = st.ListNames()
	require.NoError(t, err)
	assert.Equal(t, []string{Assets, Settings}, names)
}

func TestWithPrefix(t *testing.T) {
	mem := backend.NewMemory()
	st := New(mem, &fixedKey{}, WithPrefix("test_"))
	require.NoError(t, st.Set(Goals, []int{}))

	_, ok, _ := mem.Get("test_goals")
	assert.True(t, ok)
	assert.Equal(t, "test_", st.Prefix())
}

func TestEnsureDefaults(t *testing.T) {
	st, _, _ := newStore(t)
	require.NoError(t, st.Set(Expenses, []string{"kept"}))

	created, err := st.EnsureDefaults()
	require.NoError(t, err)
	assert.Equal(t, []string{Assets, Income, Goals, Categories, Settings}, created)

	assert.JSONEq(t, `["kept"]`, string(st.Get(Expenses)))
	assert.JSONEq(t, `{"assets":[],"history":[]}`, string(st.Get(Assets)))
	assert.JSONEq(t, `{"encryptionEnabled":false,"currency":"USD"}`, string(st.Get(Settings)))

	again, err := st.EnsureDefaults()
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestClearAll_KeepsEncryptionState(t *testing.T) {
	st, keys, _ := newStore(t)
	keys.k = deriveKey(t, "pw")

	require.NoError(t, st.Set(Expenses, []string{"gone"}))
	require.NoError(t, st.Set("legacy", []int{1}))
	require.NoError(t, st.ClearAll())

	names, err := st.ListNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, KnownNames, names)

	assert.JSONEq(t, `[]`, string(st.Get(Expenses)))

	enabled, err := EncryptionFlag(st.Get(Settings))
	require.NoError(t, err)
	assert.True(t, enabled)

	for _, name := range KnownNames {
		state, err := st.Inspect(name)
		require.NoError(t, err)
		assert.Equal(t, EntryEncrypted, state, name)
	}
}

func TestExportImportAll(t *testing.T) {
	st, keys, _ := newStore(t)
	keys.k = deriveKey(t, "pw")
	require.NoError(t, st.Set(Assets, map[string][]int{"assets": {}, "history": {}}))
	require.NoError(t, st.Set("extra", []string{"x"}))

	exported, err := st.ExportAll()
	require.NoError(t, err)
	assert.Len(t, exported, 2)

	other, otherKeys, _ := newStore(t)
	require.NoError(t, other.ImportAll(exported))
	assert.JSONEq(t, `["x"]`, string(other.Get("extra")))

	state, _ := other.Inspect("extra")
	assert.Equal(t, EntryPlaintext, state, "import honours the target's key state")
	assert.Nil(t, otherKeys.k)
}

func TestExportAll_FailsOnUnreadable(t *testing.T) {
	st, keys, _ := newStore(t)
	keys.k = deriveKey(t, "pw")
	require.NoError(t, st.Set(Goals, []int{}))

	keys.k = deriveKey(t, "wrong")
	_, err := st.ExportAll()
	assert.ErrorIs(t, err, kerrors.ErrDataUnavailable)
}

func TestImportAll_InvalidValueWritesNothing(t *testing.T) {
	st, _, mem := newStore(t)

	err := st.ImportAll(map[string]json.RawMessage{
		Assets:   json.RawMessage(`{"assets":[],"history":[]}`),
		Expenses: json.RawMessage(`not json`),
	})
	assert.ErrorIs(t, err, kerrors.ErrSerialization)
	assert.Equal(t, 0, mem.Size())
}

func TestReplaceAll(t *testing.T) {
	st, _, _ := newStore(t)
	_, err := st.EnsureDefaults()
	require.NoError(t, err)
	require.NoError(t, st.Set(Expenses, []string{"old"}))
	require.NoError(t, st.Set("legacy", []int{1}))

	require.NoError(t, st.ReplaceAll(map[string]json.RawMessage{
		Income:  json.RawMessage(`[{"source":"Job"}]`),
		"extra": json.RawMessage(`{"a":1}`),
	}))

	names, err := st.ListNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, append([]string{"extra"}, KnownNames...), names)
	assert.JSONEq(t, `[]`, string(st.Get(Expenses)), "known sets missing from the backup are reset")
	assert.JSONEq(t, `[{"source":"Job"}]`, string(st.Get(Income)))
	assert.Nil(t, st.Get("legacy"))
}

func TestReplaceAll_InvalidValueWritesNothing(t *testing.T) {
	st, _, _ := newStore(t)
	require.NoError(t, st.Set(Expenses, []string{"keep"}))

	err := st.ReplaceAll(map[string]json.RawMessage{Goals: json.RawMessage(`"nope"`)})
	assert.ErrorIs(t, err, kerrors.ErrSerialization)
	assert.JSONEq(t, `["keep"]`, string(st.Get(Expenses)))
}

func TestReencrypt_EnableDisable(t *testing.T) {
	st, keys, _ := newStore(t)
	_, err := st.EnsureDefaults()
	require.NoError(t, err)
	require.NoError(t, st.Set("custom", []int{42}))

	before, err := st.ExportAll()
	require.NoError(t, err)

	key := deriveKey(t, "Secret123")
	n, err := st.Reencrypt(nil, key, nil)
	require.NoError(t, err)
	assert.Equal(t, len(KnownNames)+1, n)

	infos, err := st.Describe()
	require.NoError(t, err)
	for _, info := range infos {
		assert.Equal(t, EntryEncrypted, info.State, info.Name)
		assert.Positive(t, info.Size)
	}

	keys.k = key
	during, err := st.ExportAll()
	require.NoError(t, err)
	assert.Equal(t, before, during)

	_, err = st.Reencrypt(key, nil, nil)
	require.NoError(t, err)
	keys.k = nil

	after, err := st.ExportAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReencrypt_IdempotentWithSameKey(t *testing.T) {
	st, keys, mem := newStore(t)
	key := deriveKey(t, "pw")
	keys.k = key
	_, err := st.EnsureDefaults()
	require.NoError(t, err)

	first, err := st.ExportAll()
	require.NoError(t, err)
	rawBefore, _, _ := mem.Get(DefaultPrefix + Assets)

	for i := 0; i < 2; i++ {
		_, err := st.Reencrypt(key, key, nil)
		require.NoError(t, err)
	}

	second, err := st.ExportAll()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rawAfter, _, _ := mem.Get(DefaultPrefix + Assets)
	assert.NotEqual(t, rawBefore, rawAfter, "fresh nonces change the ciphertext")
}

func TestReencrypt_EditRewritesSettings(t *testing.T) {
	st, _, _ := newStore(t)
	_, err := st.EnsureDefaults()
	require.NoError(t, err)

	key := deriveKey(t, "pw")
	_, err = st.Reencrypt(nil, key, func(name string, v json.RawMessage) (json.RawMessage, error) {
		if name != Settings {
			return v, nil
		}
		return WithEncryptionFlag(v, true)
	})
	require.NoError(t, err)

	st.keys = &fixedKey{k: key}
	enabled, err := EncryptionFlag(st.Get(Settings))
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestReencrypt_FailureWritesNothing(t *testing.T) {
	st, _, mem := newStore(t)
	_, err := st.EnsureDefaults()
	require.NoError(t, err)

	// One entry was encrypted under some other key.
	stray, err := secrets.Encrypt(deriveKey(t, "stray"), []byte(`[]`))
	require.NoError(t, err)
	require.NoError(t, mem.Put(DefaultPrefix+"stray", []byte(stray)))

	snapshot := map[string][]byte{}
	keys, _ := mem.Keys("")
	for _, k := range keys {
		snapshot[k], _, _ = mem.Get(k)
	}

	_, err = st.Reencrypt(nil, deriveKey(t, "pw"), nil)
	assert.ErrorIs(t, err, kerrors.ErrDecryption)

	for k, v := range snapshot {
		got, _, _ := mem.Get(k)
		assert.Equal(t, v, got, k)
	}
}

func TestReencrypt_QuotaFailureWritesNothing(t *testing.T) {
	mem := backend.NewMemory(backend.WithQuota(400))
	st := New(mem, &fixedKey{})
	_, err := st.EnsureDefaults()
	require.NoError(t, err)
	sizeBefore := mem.Size()

	// Envelopes are larger than the plaintext, so the sweep does not fit.
	_, err = st.Reencrypt(nil, deriveKey(t, "pw"), nil)
	assert.ErrorIs(t, err, kerrors.ErrQuotaExceeded)
	assert.Equal(t, sizeBefore, mem.Size())

	for _, name := range KnownNames {
		state, _ := st.Inspect(name)
		assert.Equal(t, EntryPlaintext, state, name)
	}
}

func TestEncryptionFlagHelpers(t *testing.T) {
	enabled, err := EncryptionFlag(json.RawMessage(`{"currency":"USD"}`))
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = EncryptionFlag(json.RawMessage(`[]`))
	assert.ErrorIs(t, err, kerrors.ErrSerialization)

	_, err = EncryptionFlag(json.RawMessage(`{"encryptionEnabled":"yes"}`))
	assert.ErrorIs(t, err, kerrors.ErrSerialization)

	out, err := WithEncryptionFlag(json.RawMessage(`{"currency":"EUR","theme":"dark"}`), true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"currency":"EUR","theme":"dark","encryptionEnabled":true}`, string(out))

	out, err = WithEncryptionFlag(nil, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"encryptionEnabled":false}`, string(out))
}

func TestDefaults(t *testing.T) {
	for _, name := range KnownNames {
		v, ok := Default(name)
		require.True(t, ok, name)
		assert.True(t, json.Valid(v), name)
		assert.True(t, IsKnown(name))
	}

	_, ok := Default("custom")
	assert.False(t, ok)
	assert.False(t, IsKnown("custom"))
}

func TestWriteGate(t *testing.T) {
	mem := backend.NewMemory()
	keys := &gatedKey{}
	st := New(mem, keys)
	require.NoError(t, st.Set(Expenses, []any{}))

	keys.locked = true
	assert.ErrorIs(t, st.Set(Expenses, []any{"x"}), kerrors.ErrLocked)
	assert.ErrorIs(t, st.ClearAll(), kerrors.ErrLocked)
	_, err := st.Reencrypt(nil, deriveKey(t, "pw"), nil)
	assert.ErrorIs(t, err, kerrors.ErrLocked)

	// Reads still work.
	assert.JSONEq(t, `[]`, string(st.Get(Expenses)))
	state, err := st.Inspect(Expenses)
	require.NoError(t, err)
	assert.Equal(t, EntryPlaintext, state)

	keys.locked = false
	require.NoError(t, st.Set(Expenses, []any{"x"}))
}
