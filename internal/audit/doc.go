// Package audit keeps a local history of what happened to the store.
//
// Unlock attempts, encryption changes, password changes and the bulk
// operations (export, import, clear) each append one JSON object to
// <data dir>/audit.jsonl. An entry records when it happened, the operation,
// whether it succeeded, the session state afterwards and a few details such
// as the number of record sets touched. Passwords and derived keys are never
// part of an entry.
//
//	trail := audit.NewTrail(dataDir)
//	trail.Log(audit.Entry{Operation: "export", Outcome: audit.OutcomeSuccess})
//
// Writes are best-effort: a trail that cannot be written is skipped and the
// operation carries on. ReadEntries tolerates a truncated last line and any
// other line it cannot parse.
package audit
