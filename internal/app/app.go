package app

import (
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/checklist/internal/keys"
	"github.com/nhle/checklist/internal/notify"
	"github.com/nhle/checklist/internal/repository"
	"github.com/nhle/checklist/internal/ui"
	"github.com/nhle/checklist/internal/ui/detail"
	helpview "github.com/nhle/checklist/internal/ui/help"
	"github.com/nhle/checklist/internal/ui/taskform"
	"github.com/nhle/checklist/internal/ui/tasklist"
)

// tickInterval is how often countdowns and the pinned notification are
// re-rendered.
const tickInterval = time.Minute

// tickMsg drives the countdown refresh.
type tickMsg time.Time

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewForm
)

// Deps are the collaborators the UI drives.
type Deps struct {
	Repo   *repository.Repository
	Bridge *notify.Bridge

	// Banner is the capability behind Bridge, or nil when notifications
	// are off.
	Banner *Banner

	// MarkdownStyle is the glamour style for notes.
	MarkdownStyle string

	// StartupErr is shown in the status bar until the next successful
	// write, e.g. a load failure that started the store empty.
	StartupErr error
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and access to the repository.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	repo         *repository.Repository
	bridge       *notify.Bridge
	banner       *Banner
	keys         *keys.KeyMap
	lists        [2]tasklist.Model
	tab          tasklist.Kind
	detail       detail.Model
	helpView     helpview.Model
	form         taskform.Model
	now          func() time.Time
	ready        bool
	errMessage   string
	notice       string
}

// New creates a new root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()

	m := Model{
		currentView: ViewList,
		repo:        d.Repo,
		bridge:      d.Bridge,
		banner:      d.Banner,
		keys:        k,
		lists: [2]tasklist.Model{
			tasklist.New(d.Repo, k, tasklist.Active, 80, 22),
			tasklist.New(d.Repo, k, tasklist.History, 80, 22),
		},
		detail:   detail.New(k, d.MarkdownStyle, 80, 22),
		helpView: helpview.New(k, 80, 22),
		form:     taskform.New(80, 22),
		now:      time.Now,
	}
	if d.StartupErr != nil {
		m.errMessage = fmt.Sprintf("storage: %v", d.StartupErr)
	}

	if m.banner != nil && m.bridge != nil {
		b := m.banner
		m.bridge.OnAction(func(a notify.Action) {
			b.send(notificationActionMsg{action: a})
		})
	}
	return m
}

// Init loads both lists and starts the countdown ticker.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.lists[tasklist.Active].Init(),
		m.lists[tasklist.History].Init(),
		tick(),
	}
	if m.banner != nil {
		cmds = append(cmds, m.banner.WaitForEvent())
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.layout.SetBanner(m.bannerShown())
		m.ready = true
		m.resize()
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case tickMsg:
		now := time.Time(msg)
		for i := range m.lists {
			m.lists[i].SetNow(now)
		}
		m.detail.Tick(now)
		return m, tea.Batch(tick(), m.refreshPinned())

	case bannerMsg:
		m.layout.SetBanner(m.bannerShown())
		m.resize()
		m.syncPinned()
		return m, m.banner.WaitForEvent()

	case notificationActionMsg:
		log.Printf("app: notification %s on task %s", msg.action.ActionID, msg.action.TaskID)
		m.openDetail(false)
		return m, tea.Batch(m.loadDetail(false, msg.action.TaskID), m.banner.WaitForEvent())

	case tasklist.ItemsLoadedMsg:
		if msg.Err != nil {
			m.setError("loading "+msg.Kind.Title(), msg.Err)
		}
		var cmd tea.Cmd
		m.lists[msg.Kind], cmd = m.lists[msg.Kind].Update(msg)
		return m, cmd

	case tasklist.SelectedMsg:
		m.openDetail(msg.Kind == tasklist.History)
		return m, m.loadDetail(msg.Kind == tasklist.History, msg.ID)

	case detailLoadedMsg:
		if msg.err != nil {
			m.setError("opening", msg.err)
			m.currentView = ViewList
			return m, nil
		}
		if msg.entry != nil {
			m.detail.SetHistory(*msg.entry)
		} else if msg.task != nil {
			m.detail.SetTask(*msg.task)
		}
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ActionMsg:
		return m.performAction(msg)

	case editReadyMsg:
		if msg.err != nil {
			m.setError("editing task", msg.err)
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewForm
		return m, m.form.StartEdit(msg.task)

	case pinReadyMsg:
		if msg.err != nil {
			m.setError("pinning task", msg.err)
			return m, nil
		}
		m.bridge.Display(msg.task)
		m.syncPinned()
		return m, nil

	case pinRefreshMsg:
		m.handlePinRefresh(msg)
		return m, nil

	case taskform.TaskSubmittedMsg:
		m.currentView = m.previousView
		if msg.ID == "" {
			return m, m.addTask(msg.Title, msg.Due)
		}
		return m, m.updateTask(msg.ID, msg.Title, msg.Due, msg.Note)

	case taskform.SubtaskSubmittedMsg:
		m.currentView = m.previousView
		return m, m.addSubtask(msg.TaskID, msg.Text)

	case taskform.SubtaskNoteSubmittedMsg:
		m.currentView = m.previousView
		return m, m.updateSubtaskNote(msg.TaskID, msg.SubtaskID, msg.Note)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case mutationMsg:
		return m.handleMutation(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.currentView == ViewForm {
			break
		}
		m.notice = ""

		if key.Matches(msg, m.keys.Help) {
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil
		}

		switch m.currentView {
		case ViewHelp:
			if key.Matches(msg, m.keys.Back) {
				m.currentView = m.previousView
				return m, nil
			}
		case ViewList:
			if handled, mdl, cmd := m.handleListKeys(msg); handled {
				return mdl, cmd
			}
		}

		if key.Matches(msg, m.keys.OpenPinned) && m.currentView != ViewHelp && m.banner != nil {
			m.banner.Tap("")
			return m, nil
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleListKeys processes the keys that act on the selected list row.
func (m Model) handleListKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return true, m, tea.Quit

	case key.Matches(msg, m.keys.SwitchTab):
		m.tab = 1 - m.tab
		return true, m, nil

	case key.Matches(msg, m.keys.New):
		m.previousView = ViewList
		m.currentView = ViewForm
		return true, m, m.form.StartCreate(m.now())
	}

	item, ok := m.lists[m.tab].SelectedItem()
	if !ok {
		return false, m, nil
	}
	id := item.GetID()

	if m.tab == tasklist.History {
		switch {
		case key.Matches(msg, m.keys.Restore):
			mdl, cmd := m.performAction(detail.ActionMsg{Action: detail.ActionRestore, ID: id, History: true})
			return true, mdl, cmd
		case key.Matches(msg, m.keys.Delete):
			mdl, cmd := m.performAction(detail.ActionMsg{Action: detail.ActionDelete, ID: id, History: true})
			return true, mdl, cmd
		}
		return false, m, nil
	}

	var action string
	switch {
	case key.Matches(msg, m.keys.Edit):
		action = detail.ActionEdit
	case key.Matches(msg, m.keys.Complete):
		action = detail.ActionComplete
	case key.Matches(msg, m.keys.Delete):
		action = detail.ActionDelete
	case key.Matches(msg, m.keys.Pin):
		action = detail.ActionPin
	default:
		return false, m, nil
	}
	mdl, cmd := m.performAction(detail.ActionMsg{Action: action, ID: id})
	return true, mdl, cmd
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.lists[m.tab], cmd = m.lists[m.tab].Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewForm:
		m.form, cmd = m.form.Update(msg)
	}

	return m, cmd
}

func (m *Model) openDetail(history bool) {
	m.previousView = ViewList
	m.currentView = ViewDetail
	m.detail.SetLoading(true)
	if history {
		m.tab = tasklist.History
	} else {
		m.tab = tasklist.Active
	}
}

func (m *Model) resize() {
	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	for i := range m.lists {
		m.lists[i].SetSize(w, h)
	}
	m.detail.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.form.SetSize(w, h)
}

func (m Model) bannerShown() bool {
	if m.banner == nil {
		return false
	}
	_, ok := m.banner.Current()
	return ok
}

// syncPinned copies the bridge's pinned id into the list markers.
func (m *Model) syncPinned() {
	pinned := ""
	if m.bridge != nil {
		pinned = m.bridge.Pinned()
	}
	for i := range m.lists {
		m.lists[i].SetPinned(pinned)
	}
}

func (m *Model) setError(op string, err error) {
	log.Printf("app: %s: %v", op, err)
	m.errMessage = fmt.Sprintf("%s: %v", op, err)
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(
		"📋 Checklist",
		[]string{tasklist.Active.Title(), tasklist.History.Title()},
		int(m.tab),
		m.summary(),
	)

	banner := ""
	if m.banner != nil {
		if n, ok := m.banner.Current(); ok {
			banner = m.layout.RenderBanner(fmt.Sprintf("📌 %s · %s", n.Title, n.Body))
		}
	}

	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.errMessage)

	return m.layout.RenderWithFrame(header, banner, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.lists[m.tab].View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewForm:
		return m.form.View()
	default:
		return ""
	}
}

// summary returns the record counts shown in the header.
func (m Model) summary() string {
	return fmt.Sprintf(
		"%d active · %d done",
		len(m.lists[tasklist.Active].Items()),
		len(m.lists[tasklist.History].Items()),
	)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.notice != "" {
		return m.notice
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewForm:
		return "enter submit | esc cancel"
	case ViewDetail:
		if _, history := m.detail.CurrentID(); history {
			return "esc back | r restore | d delete | j/k scroll"
		}
		return "esc back | a add | space toggle | N note | D delete subtask | e edit | x complete | p pin"
	default:
		if m.tab == tasklist.History {
			return "q quit | ? help | tab active | enter open | r restore | d delete"
		}
		return "q quit | ? help | tab history | n new | e edit | x complete | d delete | p pin"
	}
}
