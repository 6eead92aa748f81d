// Package session owns coffer's encryption key and every flow that changes it.
//
// # States
//
//	Locked             stored data is encrypted, no key yet
//	UnlockedPlain      stored data is plaintext, no key
//	UnlockedEncrypted  stored data is encrypted, key installed
//	AppLocked          unlock attempts ran out (terminal until restart)
//
// Open decides between Locked and UnlockedPlain by looking at the physical
// form of the stored settings entry, because an encrypted settings entry
// cannot be read before unlock. A plaintext settings entry that claims
// encryptionEnabled=true produces a warning notice. The physical state wins.
//
// # Flows
//
//   - Unlock / TryUnlock: verify a password against stored data and install its key.
//   - EnableEncryption: UnlockedPlain to UnlockedEncrypted.
//   - DisableEncryption: UnlockedEncrypted to UnlockedPlain.
//   - ChangePassword: UnlockedEncrypted to UnlockedEncrypted under a new key.
//
// Each flow that rewrites data does so with one store.Reencrypt call. The
// rewritten record sets and the new settings.encryptionEnabled value land
// in the same backend batch, and the key slot changes only after that batch
// commits. A failure therefore leaves the store and the session as they were.
//
// Only one state-changing flow runs at a time. A second one started while a
// prompt is open fails with errors.ErrBusy.
//
// # Verification
//
// No password hash is stored. A password is correct when its key decrypts
// the reference entry: settings when it is encrypted, otherwise the first
// encrypted record set. With no encrypted data at all, every key verifies.
//
// # Collaborators
//
// The session talks to the user only through a Prompter and a Notifier, and
// records every flow outcome to an audit.Sink. Passwords and keys are never
// logged, notified or audited.
package session
