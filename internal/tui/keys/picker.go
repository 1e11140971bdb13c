package keys

import "github.com/charmbracelet/bubbles/key"

// PickerKeys are the bindings of the port picker. Movement and toggling are
// handled by the table; they are listed here for the help view.
type PickerKeys struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Confirm key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func NewPickerKeys() PickerKeys {
	return PickerKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "start polling"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "quit"),
		),
	}
}

func (k PickerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Confirm, k.Help, k.Quit}
}

func (k PickerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.Confirm, k.Help, k.Quit},
	}
}
