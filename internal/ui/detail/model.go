package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/checklist/internal/keys"
	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Actions carried by ActionMsg.
const (
	ActionEdit          = "edit"
	ActionComplete      = "complete"
	ActionDelete        = "delete"
	ActionPin           = "pin"
	ActionRestore       = "restore"
	ActionAddSubtask    = "add-subtask"
	ActionToggleSubtask = "toggle-subtask"
	ActionSubtaskNote   = "subtask-note"
	ActionDeleteSubtask = "delete-subtask"
)

// ActionMsg signals the parent to execute an action on the shown record.
// SubtaskID is set for subtask actions.
type ActionMsg struct {
	Action    string
	ID        string
	SubtaskID string
	History   bool
}

// Model is the task detail view component. It shows either a live task
// or a history entry.
type Model struct {
	task     *model.Task
	entry    *model.HistoryEntry
	cursor   int
	viewport viewport.Model
	keys     *keys.KeyMap
	mdStyle  string
	now      func() time.Time
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model. mdStyle is the glamour style used
// for notes.
func New(k *keys.KeyMap, mdStyle string, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		mdStyle:  theme.GlamourStyle(mdStyle),
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if key.Matches(keyMsg, m.keys.Back) {
		return m, func() tea.Msg { return BackMsg{} }
	}

	if m.entry != nil {
		return m.updateHistory(keyMsg)
	}
	if m.task != nil {
		return m.updateTask(keyMsg)
	}
	return m, nil
}

func (m Model) updateTask(msg tea.KeyMsg) (Model, tea.Cmd) {
	id := m.task.ID
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.task.Subtasks)-1 {
			m.cursor++
			m.refresh()
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.refresh()
		}
		return m, nil
	case key.Matches(msg, m.keys.Edit):
		return m, action(ActionMsg{Action: ActionEdit, ID: id})
	case key.Matches(msg, m.keys.Complete):
		return m, action(ActionMsg{Action: ActionComplete, ID: id})
	case key.Matches(msg, m.keys.Delete):
		return m, action(ActionMsg{Action: ActionDelete, ID: id})
	case key.Matches(msg, m.keys.Pin):
		return m, action(ActionMsg{Action: ActionPin, ID: id})
	case key.Matches(msg, m.keys.AddSubtask):
		return m, action(ActionMsg{Action: ActionAddSubtask, ID: id})
	}

	if st, ok := m.SelectedSubtask(); ok {
		switch {
		case key.Matches(msg, m.keys.ToggleSubtask):
			return m, action(ActionMsg{Action: ActionToggleSubtask, ID: id, SubtaskID: st.ID})
		case key.Matches(msg, m.keys.SubtaskNote):
			return m, action(ActionMsg{Action: ActionSubtaskNote, ID: id, SubtaskID: st.ID})
		case key.Matches(msg, m.keys.DeleteSubtask):
			return m, action(ActionMsg{Action: ActionDeleteSubtask, ID: id, SubtaskID: st.ID})
		}
	}

	// pgup/pgdn scroll long notes
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateHistory(msg tea.KeyMsg) (Model, tea.Cmd) {
	id := m.entry.ID
	switch {
	case key.Matches(msg, m.keys.Restore):
		return m, action(ActionMsg{Action: ActionRestore, ID: id, History: true})
	case key.Matches(msg, m.keys.Delete):
		return m, action(ActionMsg{Action: ActionDelete, ID: id, History: true})
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func action(msg ActionMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return placeholder.Render("Loading...")
	}
	if m.task == nil && m.entry == nil {
		return placeholder.Render("Nothing selected")
	}
	return m.viewport.View()
}

// SetTask shows a live task. The subtask cursor is kept when the same task
// is shown again.
func (m *Model) SetTask(t model.Task) {
	if m.task == nil || m.task.ID != t.ID {
		m.cursor = 0
		m.viewport.GotoTop()
	}
	m.task = &t
	m.entry = nil
	m.loading = false
	if m.cursor >= len(t.Subtasks) {
		m.cursor = max(len(t.Subtasks)-1, 0)
	}
	m.refresh()
}

// SetHistory shows a history entry.
func (m *Model) SetHistory(h model.HistoryEntry) {
	m.entry = &h
	m.task = nil
	m.cursor = 0
	m.loading = false
	m.refresh()
	m.viewport.GotoTop()
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// Tick re-renders countdowns against now.
func (m *Model) Tick(now time.Time) {
	m.now = func() time.Time { return now }
	m.refresh()
}

// CurrentID returns the id of the shown record and whether it is a
// history entry.
func (m Model) CurrentID() (string, bool) {
	switch {
	case m.task != nil:
		return m.task.ID, false
	case m.entry != nil:
		return m.entry.ID, true
	default:
		return "", false
	}
}

// Task returns the shown live task.
func (m Model) Task() (model.Task, bool) {
	if m.task == nil {
		return model.Task{}, false
	}
	return *m.task, true
}

// SelectedSubtask returns the subtask under the cursor.
func (m Model) SelectedSubtask() (model.Subtask, bool) {
	if m.task == nil || m.cursor >= len(m.task.Subtasks) {
		return model.Subtask{}, false
	}
	return m.task.Subtasks[m.cursor], true
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	switch {
	case m.task != nil:
		return m.renderTask(*m.task)
	case m.entry != nil:
		return m.renderHistory(*m.entry)
	default:
		return ""
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	metaStyle    = lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle     = lipgloss.NewStyle().Foreground(theme.ColorWhite)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	emptyStyle   = lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
)

func (m Model) renderTask(t model.Task) string {
	cd := model.CountdownTo(t.DueDate, m.now())
	var sections []string

	sections = append(sections, titleStyle.Render(t.Title), "")
	sections = append(sections, fmt.Sprintf(
		"%s      %s  %s",
		metaStyle.Render("Due:"),
		valStyle.Render(t.DueDate.Format("Mon Jan 02, 2006 15:04")),
		theme.CountdownStyle(cd.Urgent, cd.Overdue).Render(cd.Text),
	))
	if !t.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Created:"),
			valStyle.Render(t.CreatedAt.Format("2006-01-02 15:04")),
		))
	}
	sections = append(sections, m.progressLine(t.Progress(), len(t.Subtasks)))

	sections = append(sections, m.noteSection(t.Note)...)

	sections = append(sections, m.separator(), "")
	sections = append(sections, sectionStyle.Render(fmt.Sprintf("Subtasks (%d)", len(t.Subtasks))))
	if len(t.Subtasks) == 0 {
		sections = append(sections, emptyStyle.Render("No subtasks. Press a to add one."))
	}
	for i, st := range t.Subtasks {
		sections = append(sections, subtaskLines(st.Text, st.Note, st.Completed, i == m.cursor)...)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHistory(h model.HistoryEntry) string {
	var sections []string

	sections = append(sections, titleStyle.Render("✓ "+h.Title), "")
	sections = append(sections, fmt.Sprintf(
		"%s        %s",
		metaStyle.Render("Due:"),
		valStyle.Render(h.DueDate.Format("Mon Jan 02, 2006 15:04")),
	))
	sections = append(sections, fmt.Sprintf(
		"%s  %s",
		metaStyle.Render("Completed:"),
		valStyle.Render(h.CompletedAt.Local().Format("Mon Jan 02, 2006 15:04")),
	))
	sections = append(sections, m.progressLine(h.Progress(), len(h.Subtasks)))

	sections = append(sections, m.noteSection(h.Note)...)

	if len(h.Subtasks) > 0 {
		sections = append(sections, m.separator(), "")
		sections = append(sections, sectionStyle.Render(fmt.Sprintf("Subtasks (%d)", len(h.Subtasks))))
		for _, st := range h.Subtasks {
			sections = append(sections, subtaskLines(st.Text, st.Note, st.Completed, false)...)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) progressLine(percent, total int) string {
	if total == 0 {
		return fmt.Sprintf("%s %s", metaStyle.Render("Progress:"), emptyStyle.Render("no subtasks"))
	}
	return fmt.Sprintf(
		"%s %s",
		metaStyle.Render("Progress:"),
		theme.ProgressStyle(percent).Render(fmt.Sprintf("%d%%", percent)),
	)
}

func (m Model) noteSection(note string) []string {
	out := []string{"", m.separator(), "", sectionStyle.Render("Note")}
	if strings.TrimSpace(note) == "" {
		return append(out, emptyStyle.Render("No note"))
	}
	return append(out, renderMarkdown(note, m.mdStyle, m.width-4))
}

func (m Model) separator() string {
	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	return sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
}

func subtaskLines(text, note string, completed, selected bool) []string {
	box := "[ ]"
	if completed {
		box = "[x]"
	}
	cursor := "  "
	if selected {
		cursor = "› "
	}
	line := fmt.Sprintf("%s%s %s", cursor, box, text)
	switch {
	case selected:
		line = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render(line)
	case completed:
		line = theme.DimmedStyle.Render(line)
	}

	lines := []string{line}
	if note != "" {
		lines = append(lines, emptyStyle.Render("      ↳ "+note))
	}
	return lines
}

// renderMarkdown renders a note with glamour, falling back to the raw text.
func renderMarkdown(md, style string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
