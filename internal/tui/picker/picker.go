// Package picker lets the operator choose which serial ports to poll.
package picker

import (
	"strings"

	"github.com/allbin/serial-relay/internal/serialport"
	"github.com/allbin/serial-relay/internal/tui/keys"
	"github.com/allbin/serial-relay/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyPath        = "path"
	columnKeyDescription = "description"
	columnKeyUSB         = "usb"
)

// Model is a bubbletea model listing ports with selectable rows
type Model struct {
	table     table.Model
	keys      keys.PickerKeys
	help      help.Model
	confirmed bool
	quitting  bool
}

// New creates a picker over ports
func New(ports []serialport.PortInfo) Model {
	columns := []table.Column{
		table.NewColumn(columnKeyPath, "Port", 24),
		table.NewColumn(columnKeyDescription, "Description", 24),
		table.NewColumn(columnKeyUSB, "USB", 22),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPath:        p.Path,
			columnKeyDescription: p.Description,
			columnKeyUSB:         usbLabel(p),
		}))
	}

	km := table.DefaultKeyMap()
	// enter confirms the whole selection instead of toggling a row
	km.RowSelectToggle = key.NewBinding(key.WithKeys(" "))

	t := table.New(columns).
		WithRows(rows).
		WithKeyMap(km).
		SelectableRows(true).
		Focused(true).
		WithBaseStyle(styles.TableBaseStyle).
		HeaderStyle(styles.TableHeaderStyle).
		HighlightStyle(styles.TableHighlightStyle)

	return Model{
		table: t,
		keys:  keys.NewPickerKeys(),
		help:  help.New(),
	}
}

func usbLabel(p serialport.PortInfo) string {
	if !p.IsUSB {
		return "-"
	}
	label := p.VendorID + ":" + p.ProductID
	if p.SerialNumber != "" {
		label += " " + p.SerialNumber
	}
	return label
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Confirm):
			m.confirmed = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.confirmed || m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("serial-relay"))
	b.WriteString(" ")
	b.WriteString(styles.SubtitleStyle.Render("select the ports to poll"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return lipgloss.NewStyle().Margin(1, 2).Render(b.String())
}

// Confirmed reports whether the operator accepted the selection
func (m Model) Confirmed() bool {
	return m.confirmed
}

// Selected returns the chosen port paths in display order, or nil if the
// picker was abandoned
func (m Model) Selected() []string {
	if !m.confirmed {
		return nil
	}

	var paths []string
	for _, row := range m.table.SelectedRows() {
		if path, ok := row.Data[columnKeyPath].(string); ok && path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// Run shows the picker and returns the selected paths
func Run(ports []serialport.PortInfo, opts ...tea.ProgramOption) ([]string, error) {
	final, err := tea.NewProgram(New(ports), opts...).Run()
	if err != nil {
		return nil, err
	}
	return final.(Model).Selected(), nil
}
