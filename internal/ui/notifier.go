package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/PolarWolf314/coffer/internal/session"
)

// Notifier prints session notices to a terminal. It satisfies session.Notifier.
type Notifier struct {
	// W receives notices. Defaults to os.Stderr.
	W io.Writer
}

// Notify writes message with an indicator matching severity.
func (n Notifier) Notify(severity session.Severity, message string) {
	w := n.W
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprint(w, EnsureNewline(Indicator(severity)+" "+message))
}

// Indicator returns the coloured symbol for severity.
func Indicator(severity session.Severity) string {
	switch severity {
	case session.SeveritySuccess:
		return Success.Sprint("✓")
	case session.SeverityWarning:
		return Warning.Sprint("⚠")
	case session.SeverityError:
		return Error.Sprint("✗")
	default:
		return Info.Sprint("→")
	}
}

// StateLabel renders a session state for status output.
func StateLabel(state session.State) string {
	switch state {
	case session.UnlockedEncrypted:
		return Success.Sprint("encrypted (unlocked)")
	case session.UnlockedPlain:
		return Warning.Sprint("not encrypted")
	case session.Locked:
		return Info.Sprint("encrypted (locked)")
	case session.AppLocked:
		return Error.Sprint("locked out")
	default:
		return Muted.Sprint(state.String())
	}
}
