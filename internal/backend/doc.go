// Package backend provides the raw key-value storage that coffer records live in.
//
// A Backend knows nothing about encryption or JSON. It stores opaque byte
// values under string keys and can apply a batch of writes atomically. The
// record store builds everything else on top.
//
// # Drivers
//
//   - Bolt: a single bbolt file under the data directory. Used by default.
//   - Memory: an in-process map with an optional byte quota. Used for tests
//     and for throwaway sessions.
//
// # Atomicity
//
// Apply is the only way a multi-key change reaches storage. Re-encrypting the
// whole store and importing a backup both go through one Apply call, so a
// failure part way through leaves storage exactly as it was.
package backend
