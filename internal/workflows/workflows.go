package workflows

import (
	"encoding/json"
	"sort"

	"github.com/PolarWolf314/coffer/internal/audit"
	"github.com/PolarWolf314/coffer/internal/secrets"
	"github.com/PolarWolf314/coffer/internal/session"
	"github.com/PolarWolf314/coffer/internal/store"
)

func sink(s audit.Sink) audit.Sink {
	if s == nil {
		return audit.Discard
	}
	return s
}

// stateLabel names the session state a workflow ran under. Bulk workflows
// only run on an unlocked store.
func stateLabel(st *store.Store) string {
	if st.Encrypting() {
		return session.UnlockedEncrypted.String()
	}
	return session.UnlockedPlain.String()
}

func withDefaults(kdf secrets.KDF) secrets.KDF {
	if kdf.Iterations == 0 {
		kdf.Iterations = secrets.DefaultIterations
	}
	return kdf
}

func sortedNames(records map[string]json.RawMessage) []string {
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
