package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/theme"
)

// dueLayout is how due dates are prefilled.
const dueLayout = "2006-01-02 15:04"

// Mode selects what the form edits.
type Mode int

const (
	ModeCreateTask Mode = iota
	ModeEditTask
	ModeAddSubtask
	ModeSubtaskNote
)

// TaskSubmittedMsg is dispatched when the task form is submitted. ID is
// empty for a new task.
type TaskSubmittedMsg struct {
	ID    string
	Title string
	Due   string
	Note  string
}

// SubtaskSubmittedMsg is dispatched when a subtask is added.
type SubtaskSubmittedMsg struct {
	TaskID string
	Text   string
}

// SubtaskNoteSubmittedMsg is dispatched when a subtask note is edited.
type SubtaskNoteSubmittedMsg struct {
	TaskID    string
	SubtaskID string
	Note      string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title string
	due   string
	note  string
	text  string
}

// Model is the Bubble Tea model for the task and subtask forms.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	mode      Mode
	taskID    string
	subtaskID string
	width     int
	height    int
}

// New creates a new form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new task due tomorrow at 09:00.
func (m *Model) StartCreate(now time.Time) tea.Cmd {
	tomorrow := now.AddDate(0, 0, 1)
	due := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, now.Location())

	m.reset(ModeCreateTask, "", "")
	m.fb.due = due.Format(dueLayout)
	m.form = m.buildForm(m.titleField(), m.dueField())
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing task.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	m.reset(ModeEditTask, t.ID, "")
	m.fb.title = t.Title
	m.fb.due = t.DueDate.Local().Format(dueLayout)
	m.fb.note = t.Note
	m.form = m.buildForm(
		m.titleField(),
		m.dueField(),
		huh.NewText().
			Title("Note").
			Placeholder("Markdown is supported").
			Value(&m.fb.note),
	)
	return m.form.Init()
}

// StartAddSubtask initializes the form for a new subtask of taskID.
func (m *Model) StartAddSubtask(taskID string) tea.Cmd {
	m.reset(ModeAddSubtask, taskID, "")
	m.form = m.buildForm(
		huh.NewInput().
			Title("Subtask").
			Placeholder("What is the next step?").
			Value(&m.fb.text).
			Validate(validateRequired("Subtask")),
	)
	return m.form.Init()
}

// StartSubtaskNote initializes the form for editing a subtask note.
func (m *Model) StartSubtaskNote(taskID string, st model.Subtask) tea.Cmd {
	m.reset(ModeSubtaskNote, taskID, st.ID)
	m.fb.note = st.Note
	m.form = m.buildForm(
		huh.NewText().
			Title("Note for "+st.Text).
			Placeholder("Leave empty to remove the note").
			Value(&m.fb.note),
	)
	return m.form.Init()
}

func (m *Model) reset(mode Mode, taskID, subtaskID string) {
	m.mode = mode
	m.taskID = taskID
	m.subtaskID = subtaskID
	*m.fb = formBindings{}
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(m.heading()) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

func (m Model) heading() string {
	switch m.mode {
	case ModeEditTask:
		return "Edit Task"
	case ModeAddSubtask:
		return "New Subtask"
	case ModeSubtaskNote:
		return "Subtask Note"
	default:
		return "New Task"
	}
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm(fields ...huh.Field) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) titleField() huh.Field {
	return huh.NewInput().
		Title("Title").
		Placeholder("What needs to be done?").
		Value(&m.fb.title).
		Validate(validateRequired("Title"))
}

func (m *Model) dueField() huh.Field {
	return huh.NewInput().
		Title("Due").
		Placeholder("YYYY-MM-DD HH:MM").
		Value(&m.fb.due).
		Validate(validateDue)
}

func (m Model) handleSubmit() tea.Cmd {
	fb := *m.fb
	taskID, subtaskID := m.taskID, m.subtaskID

	switch m.mode {
	case ModeAddSubtask:
		return func() tea.Msg { return SubtaskSubmittedMsg{TaskID: taskID, Text: fb.text} }
	case ModeSubtaskNote:
		return func() tea.Msg {
			return SubtaskNoteSubmittedMsg{TaskID: taskID, SubtaskID: subtaskID, Note: fb.note}
		}
	default:
		return func() tea.Msg {
			return TaskSubmittedMsg{ID: taskID, Title: fb.title, Due: fb.due, Note: fb.note}
		}
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDue(s string) error {
	if _, err := model.ParseDue(s); err != nil {
		return fmt.Errorf("use YYYY-MM-DD or YYYY-MM-DD HH:MM")
	}
	return nil
}
