package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down      key.Binding
	Up        key.Binding
	SwitchTab key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Help toggle
	Help key.Binding

	// Task actions
	New      key.Binding
	Edit     key.Binding
	Complete key.Binding
	Delete   key.Binding
	Pin      key.Binding

	// Banner
	OpenPinned key.Binding

	// History actions
	Restore key.Binding

	// Subtask actions (detail view)
	AddSubtask    key.Binding
	ToggleSubtask key.Binding
	SubtaskNote   key.Binding
	DeleteSubtask key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		SwitchTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "active/history"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open detail"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new task"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit task"),
		),
		Complete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "complete"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Pin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin/unpin"),
		),
		OpenPinned: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open pinned"),
		),
		Restore: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restore"),
		),
		AddSubtask: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add subtask"),
		),
		ToggleSubtask: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle subtask"),
		),
		SubtaskNote: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "subtask note"),
		),
		DeleteSubtask: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete subtask"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.New,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.SwitchTab, k.Select, k.Back, k.Quit},
		{k.New, k.Edit, k.Complete, k.Delete, k.Pin, k.OpenPinned},
		{k.AddSubtask, k.ToggleSubtask, k.SubtaskNote, k.DeleteSubtask},
		{k.Restore, k.Help},
	}
}
