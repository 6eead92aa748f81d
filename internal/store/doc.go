// Package store maps coffer's record sets onto a key-value backend.
//
// A record set is a named JSON value (assets, expenses, income, goals,
// categories, settings, or anything else found under the prefix). Each one
// is persisted under "<prefix><name>" either as plaintext JSON or as a
// secrets envelope, depending on whether a key is installed.
//
// # Keys
//
// The store never chooses a key. Every call asks its KeySource for the
// current one: nil means plaintext. The security session owns that slot and
// is the only writer.
//
// # Reads
//
// Lookup returns a tagged Result that tells absent data apart from data that
// exists but cannot be decoded:
//
//	switch r := st.Lookup(store.Assets); r.Status {
//	case store.Absent:     // first run
//	case store.Unreadable: // wrong key, tampering, bad JSON
//	case store.Present:    // r.Value holds the JSON
//	}
//
// Get collapses the first two into nil for callers that only want the value.
//
// # Bulk Operations
//
// ImportAll, ClearAll, EnsureDefaults and Reencrypt each build the complete
// set of writes in memory and hand them to the backend as one atomic batch.
// Reencrypt is the sweep behind enabling or disabling encryption and
// changing the password. It covers every name under the prefix, not only the
// known ones, and lets the caller rewrite settings in the same batch.
package store
