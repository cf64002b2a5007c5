package tasklist

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/checklist/internal/keys"
	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/repository"
	"github.com/nhle/checklist/internal/theme"
)

// Kind selects which records a list shows.
type Kind int

const (
	// Active lists live tasks by due date.
	Active Kind = iota
	// History lists completed tasks, most recent first.
	History
)

// Title returns the tab label for the kind.
func (k Kind) Title() string {
	if k == History {
		return "Task History"
	}
	return "Active Tasks"
}

// ItemsLoadedMsg is sent when a list has been read from the repository.
type ItemsLoadedMsg struct {
	Kind  Kind
	Items []model.ListItem
	Err   error
}

// SelectedMsg is sent when a user selects an item to view details.
type SelectedMsg struct {
	Kind Kind
	ID   string
}

// Model is a task or history list view component.
type Model struct {
	list   list.Model
	repo   *repository.Repository
	keys   *keys.KeyMap
	kind   Kind
	state  *rowState
	width  int
	height int
}

// New creates a new list model for kind.
func New(repo *repository.Repository, k *keys.KeyMap, kind Kind, width, height int) Model {
	state := &rowState{}
	l := list.New([]list.Item{}, ItemDelegate{state: state}, width, height)
	l.Title = kind.Title()
	l.SetShowTitle(false)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		repo:   repo,
		keys:   k,
		kind:   kind,
		state:  state,
		width:  width,
		height: height,
	}
}

// Init returns a command that loads the initial set of items.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ItemsLoadedMsg:
		if msg.Kind != m.kind || msg.Err != nil {
			return m, nil
		}
		items := make([]list.Item, len(msg.Items))
		for i, it := range msg.Items {
			items[i] = ListItemWrapper{Item: it}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Select) {
			item, ok := m.SelectedItem()
			if !ok {
				return m, nil
			}
			kind := m.kind
			return m, func() tea.Msg {
				return SelectedMsg{Kind: kind, ID: item.GetID()}
			}
		}
	}

	// Delegate to list model for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when the list is empty.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.kind == History {
		return style.Render("No completed tasks yet.")
	}
	return style.Render("No tasks.\n\nPress n to add one.")
}

// Load returns a tea.Cmd that reads the list from the repository.
func (m Model) Load() tea.Cmd {
	repo := m.repo
	kind := m.kind
	return func() tea.Msg {
		ctx := context.Background()
		var items []model.ListItem
		if kind == History {
			entries, err := repo.ListHistory(ctx)
			if err != nil {
				return ItemsLoadedMsg{Kind: kind, Err: err}
			}
			for _, e := range entries {
				items = append(items, e)
			}
		} else {
			tasks, err := repo.ListTasks(ctx)
			if err != nil {
				return ItemsLoadedMsg{Kind: kind, Err: err}
			}
			for _, t := range tasks {
				items = append(items, t)
			}
		}
		return ItemsLoadedMsg{Kind: kind, Items: items}
	}
}

// Kind returns which records the list shows.
func (m Model) Kind() Kind {
	return m.kind
}

// SelectedItem returns the focused item.
func (m Model) SelectedItem() (model.ListItem, bool) {
	w, ok := m.list.SelectedItem().(ListItemWrapper)
	if !ok {
		return nil, false
	}
	return w.Item, true
}

// Items returns the items currently shown.
func (m Model) Items() []model.ListItem {
	var out []model.ListItem
	for _, it := range m.list.Items() {
		if w, ok := it.(ListItemWrapper); ok {
			out = append(out, w.Item)
		}
	}
	return out
}

// SetPinned marks the task whose notification is pinned.
func (m *Model) SetPinned(id string) {
	m.state.pinned = id
}

// SetNow sets the time countdowns are computed against.
func (m *Model) SetNow(now time.Time) {
	m.state.now = now
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
