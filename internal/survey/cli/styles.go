package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Цвета совпадают с палитрой KML-стилей.
var (
	colorTitle   = lipgloss.Color("#2C3E50")
	colorAccent  = lipgloss.Color("#F39C12")
	colorMuted   = lipgloss.Color("#7F8C8D")
	colorSuccess = lipgloss.Color("#27AE60")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorTitle).
			Background(colorAccent).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(16)

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}
