// Package ui holds the lipgloss styles and small renderers shared by the
// devbox commands and the menu.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used across devbox output.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true)

	GroupStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	BoldStyle = lipgloss.NewStyle().Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	KeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	KeyHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// StatusColor returns the style for a VM or component status.
func StatusColor(status string) lipgloss.Style {
	switch status {
	case "running", "installed", "ok":
		return SuccessStyle
	case "stopped", "paused", "restarting", "skipped", "warning":
		return WarningStyle
	case "failed", "error", "missing":
		return ErrorStyle
	default:
		return DimStyle
	}
}

// RenderStatus renders a status string with appropriate coloring.
func RenderStatus(status string) string {
	return StatusColor(status).Render(status)
}

// Icon returns the check mark for a check status.
func Icon(status string) string {
	switch status {
	case "ok", "installed":
		return SuccessStyle.Render("✓")
	case "missing", "failed":
		return ErrorStyle.Render("✗")
	case "warning", "skipped":
		return WarningStyle.Render("⚠")
	case "error":
		return ErrorStyle.Render("!")
	default:
		return DimStyle.Render("·")
	}
}

// CheckLine renders one status row: icon, padded name, dimmed detail.
func CheckLine(status, name, detail string) string {
	return fmt.Sprintf("  %s %-18s %s", Icon(status), name, DimStyle.Render(detail))
}

// Counts renders "✓ 3  ✗ 1  ⚠ 2", omitting zero counts.
func Counts(ok, failed, warnings int) string {
	var parts []string
	if ok > 0 {
		parts = append(parts, SuccessStyle.Render(fmt.Sprintf("✓ %d", ok)))
	}
	if failed > 0 {
		parts = append(parts, ErrorStyle.Render(fmt.Sprintf("✗ %d", failed)))
	}
	if warnings > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("⚠ %d", warnings)))
	}
	if len(parts) == 0 {
		return DimStyle.Render("nothing to report")
	}
	return strings.Join(parts, "  ")
}

// KeyValue renders an aligned "key: value" row.
func KeyValue(key, value string, width int) string {
	return fmt.Sprintf("  %s %s", BoldStyle.Render(fmt.Sprintf("%-*s", width, key+":")), value)
}

// FormatBinding formats "[k] action" with the key highlighted.
func FormatBinding(binding string) string {
	if len(binding) < 3 || binding[0] != '[' {
		return KeyHelpStyle.Render(binding)
	}
	closeIdx := strings.Index(binding, "]")
	if closeIdx == -1 {
		return KeyHelpStyle.Render(binding)
	}
	return KeyStyle.Render(binding[:closeIdx+1]) + KeyHelpStyle.Render(binding[closeIdx+1:])
}

// RenderKeyBindings renders a list of key bindings.
func RenderKeyBindings(bindings []string) string {
	formatted := make([]string, len(bindings))
	for i, b := range bindings {
		formatted[i] = FormatBinding(b)
	}
	return strings.Join(formatted, KeyHelpStyle.Render("  "))
}
