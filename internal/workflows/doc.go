// Package workflows provides high-level orchestration for coffer commands.
//
// Workflows coordinate the store, the session and the audit trail to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Reading and writing backup files
//   - Validating input before any state changes
//   - Performing the core operation
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - Export: Writes every record set to a JSON backup, optionally password-protected
//   - Import: Restores a backup in merge or replace mode
//   - Status: Reports the session state and how each record set is stored
//   - Clear: Resets every record set to its default
//   - Log: Reads and filters the audit trail
//
// Encryption itself is not a workflow. Enabling, disabling and changing the
// password are flows on session.Session because they own the key.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	result, err := workflows.Import(ctx, opts)
//	if errors.Is(err, kerrors.ErrWrongPassword) {
//	    // Tell the user the backup password was wrong
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Workflows that write check it before committing.
package workflows
