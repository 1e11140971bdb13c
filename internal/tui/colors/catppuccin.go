package colors

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, the subset the picker and port table draw with
var (
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Overlay1 = lipgloss.Color("#7f849c")
	Subtext0 = lipgloss.Color("#a6adc8")
	Text     = lipgloss.Color("#cdd6f4")

	Blue  = lipgloss.Color("#89b4fa")
	Green = lipgloss.Color("#a6e3a1")
	Peach = lipgloss.Color("#fab387")
	Red   = lipgloss.Color("#f38ba8")
	Mauve = lipgloss.Color("#cba6f7")
)
