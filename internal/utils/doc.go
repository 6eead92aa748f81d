// Package utils provides shared helpers for the coffer CLI.
//
// # Terminal Utilities
//
// TerminalPrompter implements session.Prompter. On a terminal it reads
// passwords with golang.org/x/term so they are not echoed. On a pipe it reads
// one line per prompt, which is what scripts and tests feed it:
//
//	printf 'Secret123\nSecret123\n' | coffer encryption enable
//
// End of input is treated as the user cancelling.
//
// # String Utilities
//
// Functions for formatting lists for human-readable output:
//   - FormatPaths: formats file paths
//   - FormatNames: formats record set names
package utils
