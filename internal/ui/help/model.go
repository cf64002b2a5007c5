// Package help renders the keyboard reference overlay.
package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/checklist/internal/keys"
	"github.com/nhle/checklist/internal/theme"
)

// sectionTitles name the groups returned by KeyMap.FullHelp, in order.
var sectionTitles = []string{"Navigation", "Tasks", "Subtasks", "History"}

const dueFormats = "Due dates accept YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC 3339. " +
	"Countdowns turn urgent inside 24 hours."

// Model is the help overlay.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, help: help.New(), width: width, height: height}
}

// Update is a no-op; the root model closes the overlay.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) View() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	var columns []string
	for i, group := range m.keys.FullHelp() {
		title := "More"
		if i < len(sectionTitles) {
			title = sectionTitles[i]
		}
		col := lipgloss.JoinVertical(lipgloss.Left,
			heading.Render(title),
			m.help.FullHelpView([][]key.Binding{group}),
		)
		columns = append(columns, lipgloss.NewStyle().MarginRight(4).Render(col))
	}

	inner := m.width - 4
	content := lipgloss.JoinVertical(lipgloss.Left,
		heading.MarginBottom(1).Render("Keyboard Shortcuts"),
		lipgloss.JoinHorizontal(lipgloss.Top, columns...),
		"",
		theme.HelpStyle.Width(inner).Render(dueFormats),
	)

	return theme.DetailPanelStyle.
		Width(inner).
		Height(m.height - 4).
		Render(content)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
