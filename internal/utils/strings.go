package utils

import (
	"strings"

	"github.com/PolarWolf314/coffer/internal/ui"
)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	return formatList(paths, ui.Path.Sprint)
}

// FormatNames formats record set names as an indented list.
func FormatNames(names []string) string {
	return formatList(names, ui.Highlight.Sprint)
}

func formatList(items []string, style func(a ...interface{}) string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("    - ")
		b.WriteString(style(item))
		b.WriteString("\n")
	}
	return b.String()
}

// IsAffirmative reports whether answer means yes.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
