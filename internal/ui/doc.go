// Package ui holds the text styles and notice rendering used by coffer's
// commands.
//
// Each Formatter names a kind of content rather than a colour, so call sites
// say what they print:
//
//	ui.Code.Sprint("coffer encryption enable")
//	ui.Path.Sprint(dataDir)
//	ui.Amount.Sprint(finance.FormatAmount(total, "USD"))
//	ui.Highlight.Sprint(asset.ID)
//
// With NO_COLOR set, or when stdout is not a colour terminal, formatters fall
// back to plain decorations: backticks around commands, single quotes around
// user values and parentheses around muted text. Amounts and paths print
// unchanged.
//
// Notifier implements session.Notifier. It prints password and consistency
// notices to stderr with an icon matching their severity.
package ui
