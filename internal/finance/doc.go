// Package finance implements coffer's domain records on top of the record store.
//
// The Ledger reads a record set, changes it in memory and writes the whole
// set back through store.Store. It never sees keys or envelopes: whether the
// data is encrypted is decided entirely by the session that owns the store.
//
// Amounts are shopspring/decimal values, serialized as JSON strings. IDs are
// random UUIDs. Money is rendered for display with go-money's per-currency
// formatting:
//
//	finance.FormatAmount(decimal.RequireFromString("1234.5"), "EUR") // "1.234,50 €"
//
// A record set that is absent reads as its default. One that exists but
// cannot be decoded fails with errors.ErrDataUnavailable and is never
// overwritten.
package finance
