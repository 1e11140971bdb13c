package styles

import (
	"github.com/allbin/serial-relay/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Italic(true)

	// Table styles
	TableBaseStyle = lipgloss.NewStyle().
			Foreground(colors.Text).
			BorderForeground(colors.Surface1).
			Align(lipgloss.Left)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colors.Blue)

	TableHighlightStyle = lipgloss.NewStyle().
				Foreground(colors.Text).
				Background(colors.Surface1)

	TableCellStyle = lipgloss.NewStyle().
			Foreground(colors.Text).
			Padding(0, 1)

	USBStyle = lipgloss.NewStyle().
			Foreground(colors.Green)

	MutedStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay1)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	WarningStyle = lipgloss.NewStyle().
			Foreground(colors.Peach)
)
