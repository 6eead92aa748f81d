package workflows

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/PolarWolf314/coffer/internal/audit"
	"github.com/PolarWolf314/coffer/internal/backend"
	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/secrets"
	"github.com/PolarWolf314/coffer/internal/session"
	"github.com/PolarWolf314/coffer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKDF = secrets.KDF{Iterations: secrets.MinIterations}

type memorySink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memorySink) Log(entry audit.Entry) {
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
}

func (m *memorySink) last() audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func constantPassword(pw string) session.Prompter {
	return session.PrompterFunc(func(context.Context, string) (string, error) { return pw, nil })
}

func openSession(t *testing.T, encryptWith string) *session.Session {
	t.Helper()
	s, err := session.Open(backend.NewMemory(), session.Options{
		Prompter: constantPassword(encryptWith),
		KDF:      testKDF,
	})
	require.NoError(t, err)
	if encryptWith != "" {
		require.NoError(t, s.EnableEncryption(context.Background()))
		require.Equal(t, session.UnlockedEncrypted, s.State())
	}
	return s
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, st *store.Store) {
	t.Helper()
	require.NoError(t, st.Set(store.Expenses, json.RawMessage(`[{"id":"e1","description":"Rent","amount":"800"}]`)))
	require.NoError(t, st.Set("custom", json.RawMessage(`{"note":"kept"}`)))
}

func readJSON(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestExport_PlainDocument(t *testing.T) {
	s := openSession(t, "")
	seed(t, s.Store())
	sink := &memorySink{}
	out := filepath.Join(t.TempDir(), "backups", "plain.json")

	result, err := Export(context.Background(), ExportOptions{
		Store:      s.Store(),
		OutputPath: out,
		Now:        fixedClock,
		Audit:      sink,
	})
	require.NoError(t, err)
	assert.False(t, result.Encrypted)
	assert.Empty(t, result.BackupCode)
	assert.Contains(t, result.Names, store.Expenses)
	assert.Contains(t, result.Names, "custom")

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, int64(result.Bytes), info.Size())

	doc := readJSON(t, out)
	assert.JSONEq(t, `"2024-05-01T12:00:00Z"`, string(doc["exportDate"]))
	assert.JSONEq(t, `"1.0"`, string(doc["version"]))
	assert.JSONEq(t, `[{"id":"e1","description":"Rent","amount":"800"}]`, string(doc[store.Expenses]))
	assert.JSONEq(t, `{"note":"kept"}`, string(doc["custom"]))

	entry := sink.last()
	assert.Equal(t, OpExport, entry.Operation)
	assert.Equal(t, audit.OutcomeSuccess, entry.Outcome)
	assert.Equal(t, out, entry.OutputPath)
	assert.Equal(t, "unlocked-plain", entry.State)
}

func TestExport_EncryptedStoreExportsPlaintextRecords(t *testing.T) {
	s := openSession(t, "StorePass1")
	seed(t, s.Store())
	out := filepath.Join(t.TempDir(), "b.json")

	_, err := Export(context.Background(), ExportOptions{Store: s.Store(), OutputPath: out})
	require.NoError(t, err)

	doc := readJSON(t, out)
	assert.JSONEq(t, `{"note":"kept"}`, string(doc["custom"]))
}

func TestExport_FailsOnUnreadableRecordSet(t *testing.T) {
	mem := backend.NewMemory()
	require.NoError(t, mem.Apply([]backend.Op{backend.Put(store.DefaultPrefix+store.Goals, []byte("bm90LWEtcmVhbC1lbnZlbG9wZQ=="))}))
	st := store.New(mem, nil)
	sink := &memorySink{}
	out := filepath.Join(t.TempDir(), "b.json")

	_, err := Export(context.Background(), ExportOptions{Store: st, OutputPath: out, Audit: sink})
	assert.ErrorIs(t, err, kerrors.ErrDataUnavailable)
	assert.NoFileExists(t, out)
	assert.Equal(t, audit.OutcomeFailure, sink.last().Outcome)
}

func TestExport_EncryptedRequiresPassword(t *testing.T) {
	s := openSession(t, "")
	_, err := Export(context.Background(), ExportOptions{Store: s.Store(), Encrypt: true})
	assert.ErrorIs(t, err, kerrors.ErrEmptyPassword)
}

func TestDefaultExportName(t *testing.T) {
	assert.Equal(t, "coffer-backup-2024-05-01.json", DefaultExportName(fixedClock(), false))
	assert.Equal(t, "coffer-backup-2024-05-01.encrypted.json", DefaultExportName(fixedClock(), true))
}

func TestEncryptedBackup_RoundTripsOnlyWithRightPassword(t *testing.T) {
	src := openSession(t, "")
	seed(t, src.Store())
	out := filepath.Join(t.TempDir(), "secure.json")

	exported, err := Export(context.Background(), ExportOptions{
		Store:      src.Store(),
		OutputPath: out,
		Encrypt:    true,
		Password:   "BackupPass1",
		KDF:        testKDF,
		Now:        fixedClock,
	})
	require.NoError(t, err)
	assert.True(t, exported.Encrypted)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}$`), exported.BackupCode)

	doc := readJSON(t, out)
	assert.JSONEq(t, `true`, string(doc["encrypted"]))
	assert.JSONEq(t, `"`+exported.BackupCode+`"`, string(doc["backupCode"]))
	assert.JSONEq(t, `"2024-05-01T12:00:00Z"`, string(doc["timestamp"]))
	assert.NotContains(t, doc, store.Expenses)

	dst := openSession(t, "")
	password := func(pw string) func(context.Context) (string, error) {
		return func(context.Context) (string, error) { return pw, nil }
	}

	_, err = Import(context.Background(), ImportOptions{Store: dst.Store(), InputPath: out, KDF: testKDF, Password: password("wrong")})
	assert.ErrorIs(t, err, kerrors.ErrWrongPassword)
	assert.JSONEq(t, `[]`, string(dst.Store().Get(store.Expenses)))

	_, err = Import(context.Background(), ImportOptions{Store: dst.Store(), InputPath: out, KDF: testKDF})
	assert.ErrorIs(t, err, kerrors.ErrCancelled)

	result, err := Import(context.Background(), ImportOptions{Store: dst.Store(), InputPath: out, KDF: testKDF, Password: password("BackupPass1")})
	require.NoError(t, err)
	assert.True(t, result.Encrypted)
	assert.NotContains(t, result.Names, "exportDate")
	assert.NotContains(t, result.Names, "version")
	assert.JSONEq(t, `{"note":"kept"}`, string(dst.Store().Get("custom")))
}

func TestImport_NeverFlipsEncryptionFlag(t *testing.T) {
	src := openSession(t, "")
	seed(t, src.Store())
	out := filepath.Join(t.TempDir(), "plain.json")
	_, err := Export(context.Background(), ExportOptions{Store: src.Store(), OutputPath: out})
	require.NoError(t, err)

	dst := openSession(t, "TargetPass1")
	_, err = Import(context.Background(), ImportOptions{Store: dst.Store(), InputPath: out})
	require.NoError(t, err)

	enabled, err := store.EncryptionFlag(dst.Store().Get(store.Settings))
	require.NoError(t, err)
	assert.True(t, enabled)

	infos, err := dst.Store().Describe()
	require.NoError(t, err)
	for _, info := range infos {
		assert.Equal(t, store.EntryEncrypted, info.State, info.Name)
	}

	// And the reverse: an encrypted store's backup does not enable encryption.
	srcEnc := openSession(t, "SourcePass1")
	out2 := filepath.Join(t.TempDir(), "from-encrypted.json")
	_, err = Export(context.Background(), ExportOptions{Store: srcEnc.Store(), OutputPath: out2})
	require.NoError(t, err)

	plain := openSession(t, "")
	_, err = Import(context.Background(), ImportOptions{Store: plain.Store(), InputPath: out2})
	require.NoError(t, err)
	enabled, err = store.EncryptionFlag(plain.Store().Get(store.Settings))
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestImport_MergeReplaceAndDryRun(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(backup, []byte(`{
		"income": [{"id":"i1","source":"Job","amount":"100"}],
		"fresh": {"x": 1},
		"exportDate": "2024-01-01T00:00:00Z",
		"version": "1.0"
	}`), 0600))

	s := openSession(t, "")
	seed(t, s.Store())
	sink := &memorySink{}

	preview, err := Import(context.Background(), ImportOptions{Store: s.Store(), InputPath: backup, DryRun: true, Mode: ImportModeReplace, Audit: sink})
	require.NoError(t, err)
	assert.True(t, preview.DryRun)
	assert.Equal(t, []string{"fresh", store.Income}, preview.Names)
	assert.Equal(t, 1, preview.Added)
	assert.Equal(t, 1, preview.Overwritten)
	assert.Positive(t, preview.Removed)
	assert.Nil(t, s.Store().Get("fresh"), "dry run writes nothing")
	assert.Empty(t, sink.entries, "dry run is not audited")

	merged, err := Import(context.Background(), ImportOptions{Store: s.Store(), InputPath: backup, Audit: sink})
	require.NoError(t, err)
	assert.Equal(t, ImportModeMerge, merged.Mode)
	assert.JSONEq(t, `{"note":"kept"}`, string(s.Store().Get("custom")), "merge keeps other record sets")
	assert.JSONEq(t, `{"x":1}`, string(s.Store().Get("fresh")))
	assert.Equal(t, "merge", sink.last().Mode)

	_, err = Import(context.Background(), ImportOptions{Store: s.Store(), InputPath: backup, Mode: ImportModeReplace, Audit: sink})
	require.NoError(t, err)
	assert.Nil(t, s.Store().Get("custom"), "replace drops record sets the backup lacks")
	assert.JSONEq(t, `[]`, string(s.Store().Get(store.Expenses)), "known sets are reset, not dropped")
	assert.Equal(t, "replace", sink.last().Mode)
	assert.Equal(t, 2, sink.last().NamesCount)
}

func TestImport_InvalidBackups(t *testing.T) {
	dir := t.TempDir()
	s := openSession(t, "")

	cases := map[string]string{
		"not-json":     `hello`,
		"array":        `[1,2,3]`,
		"only-meta":    `{"exportDate":"2024-01-01T00:00:00Z","version":"1.0"}`,
		"scalar-value": `{"expenses": 5}`,
		"bad-settings": `{"settings": [1]}`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0600))

			_, err := Import(context.Background(), ImportOptions{Store: s.Store(), InputPath: path})
			require.Error(t, err)
			assert.True(t,
				kerrors.Is(err, kerrors.ErrInvalidBackup) || kerrors.Is(err, kerrors.ErrSerialization),
				"unexpected error: %v", err)
		})
	}

	_, err := Import(context.Background(), ImportOptions{Store: s.Store(), InputPath: filepath.Join(dir, "missing.json")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImport_CancelledContextWritesNothing(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(backup, []byte(`{"fresh":{"x":1}}`), 0600))

	s := openSession(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Import(ctx, ImportOptions{Store: s.Store(), InputPath: backup})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.Store().Get("fresh"))
}

func TestClear_KeepsEncryption(t *testing.T) {
	s := openSession(t, "ClearPass1")
	seed(t, s.Store())
	sink := &memorySink{}

	preview, err := Clear(context.Background(), ClearOptions{Store: s.Store(), DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, preview.Removed)
	assert.NotNil(t, s.Store().Get("custom"))

	result, err := Clear(context.Background(), ClearOptions{Store: s.Store(), Audit: sink})
	require.NoError(t, err)
	assert.ElementsMatch(t, store.KnownNames, result.Reset)

	assert.Nil(t, s.Store().Get("custom"))
	assert.JSONEq(t, `[]`, string(s.Store().Get(store.Expenses)))
	enabled, err := store.EncryptionFlag(s.Store().Get(store.Settings))
	require.NoError(t, err)
	assert.True(t, enabled)

	entry := sink.last()
	assert.Equal(t, OpClear, entry.Operation)
	assert.Equal(t, "unlocked-encrypted", entry.State)
	assert.Equal(t, len(store.KnownNames)+1, entry.NamesCount)
}

func TestStatus(t *testing.T) {
	plain := openSession(t, "")
	result, err := Status(context.Background(), StatusOptions{Session: plain})
	require.NoError(t, err)
	assert.Equal(t, session.UnlockedPlain, result.State)
	assert.Equal(t, 3, result.MaxAttempts)
	assert.Equal(t, 3, result.RemainingAttempts)
	assert.Empty(t, result.Missing)
	assert.Equal(t, len(store.KnownNames), result.Summary.Plaintext)
	assert.Zero(t, result.Summary.Encrypted)

	total := 0
	for _, e := range result.Entries {
		total += e.Size
	}
	assert.Equal(t, total, result.Summary.Bytes)

	enc := openSession(t, "StatusPass1")
	result, err = Status(context.Background(), StatusOptions{Session: enc})
	require.NoError(t, err)
	assert.Equal(t, session.UnlockedEncrypted, result.State)
	assert.Equal(t, len(store.KnownNames), result.Summary.Encrypted)

	_, err = Status(context.Background(), StatusOptions{})
	assert.Error(t, err)
}

func TestLog(t *testing.T) {
	dir := t.TempDir()
	trail := audit.NewTrail(dir)
	for _, e := range []audit.Entry{
		{Operation: session.OpUnlock, Outcome: audit.OutcomeFailure, State: "locked"},
		{Operation: session.OpUnlock, Outcome: audit.OutcomeSuccess, State: "unlocked-encrypted"},
		{Operation: OpExport, Outcome: audit.OutcomeSuccess, State: "unlocked-encrypted", OutputPath: "b.json"},
		{Operation: OpClear, Outcome: audit.OutcomeSuccess, State: "unlocked-encrypted", NamesCount: 6},
	} {
		trail.Log(e)
	}

	all, err := Log(context.Background(), LogOptions{Path: trail.Path()})
	require.NoError(t, err)
	assert.Len(t, all.Entries, 4)
	assert.Equal(t, 4, all.TotalEntriesBeforeFilter)

	unlocks, err := Log(context.Background(), LogOptions{Path: trail.Path(), Operation: "UNLOCK"})
	require.NoError(t, err)
	assert.Len(t, unlocks.Entries, 2)

	latest, err := Log(context.Background(), LogOptions{Path: trail.Path(), Limit: 1})
	require.NoError(t, err)
	require.Len(t, latest.Entries, 1)
	assert.Equal(t, OpClear, latest.Entries[0].Operation)

	reversed, err := Log(context.Background(), LogOptions{Path: trail.Path(), Limit: 2, Reverse: true})
	require.NoError(t, err)
	require.Len(t, reversed.Entries, 2)
	assert.Equal(t, OpClear, reversed.Entries[0].Operation)
	assert.Equal(t, OpExport, reversed.Entries[1].Operation)

	future, err := Log(context.Background(), LogOptions{Path: trail.Path(), Since: "2999-01-01"})
	require.NoError(t, err)
	assert.Empty(t, future.Entries)

	_, err = Log(context.Background(), LogOptions{Path: trail.Path(), Since: "yesterday"})
	assert.ErrorIs(t, err, kerrors.ErrValidation)

	missing, err := Log(context.Background(), LogOptions{Path: filepath.Join(dir, "none.jsonl")})
	require.NoError(t, err)
	assert.Empty(t, missing.Entries)
}

func TestFormatDetails(t *testing.T) {
	assert.Equal(t, "b.json", FormatDetails(audit.Entry{Operation: OpExport, Outcome: audit.OutcomeSuccess, OutputPath: "b.json"}))
	assert.Equal(t, "replace, 3 record sets", FormatDetails(audit.Entry{Operation: OpImport, Outcome: audit.OutcomeSuccess, Mode: "replace", NamesCount: 3}))
	assert.Equal(t, "6 record sets", FormatDetails(audit.Entry{Operation: session.OpEnableEncryption, Outcome: audit.OutcomeSuccess, NamesCount: 6}))
	assert.Equal(t, "incorrect password", FormatDetails(audit.Entry{Operation: session.OpUnlock, Outcome: audit.OutcomeFailure, Detail: "incorrect password"}))
}

func TestFormatDateTimeAndAge(t *testing.T) {
	assert.Equal(t, "2024-05-01 12:00:00", FormatDateTime("2024-05-01T12:00:00.000000Z"))
	assert.Equal(t, "garbage", FormatDateTime("garbage"))
	assert.Equal(t, "2 hours ago", FormatAge("2024-05-01T10:00:00Z", fixedClock()))
}
