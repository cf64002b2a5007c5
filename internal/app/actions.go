package app

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/repository"
	"github.com/nhle/checklist/internal/ui/detail"
	"github.com/nhle/checklist/internal/ui/tasklist"
)

// mutationMsg is sent after a repository write. task is the updated live
// task when there is one; removed is the id that left its list.
type mutationMsg struct {
	op      string
	task    *model.Task
	removed string
	err     error
}

// detailLoadedMsg carries the record opened in the detail view.
type detailLoadedMsg struct {
	task  *model.Task
	entry *model.HistoryEntry
	err   error
}

// editReadyMsg carries the task to be edited.
type editReadyMsg struct {
	task model.Task
	err  error
}

// pinReadyMsg carries the task to pin.
type pinReadyMsg struct {
	task model.Task
	err  error
}

// pinRefreshMsg carries the pinned task re-read on a tick.
type pinRefreshMsg struct {
	id   string
	task model.Task
	err  error
}

// performAction runs a list or detail action on a task or history entry.
func (m Model) performAction(a detail.ActionMsg) (tea.Model, tea.Cmd) {
	id := a.ID
	switch a.Action {
	case detail.ActionEdit:
		return m, m.withTask(id, func(t model.Task, err error) tea.Msg {
			return editReadyMsg{task: t, err: err}
		})

	case detail.ActionPin:
		if m.bridge == nil || !m.bridge.Enabled() {
			m.notice = "notifications are disabled"
			return m, nil
		}
		if m.bridge.Pinned() == id {
			m.bridge.Clear()
			m.syncPinned()
			return m, nil
		}
		return m, m.withTask(id, func(t model.Task, err error) tea.Msg {
			return pinReadyMsg{task: t, err: err}
		})

	case detail.ActionComplete:
		return m, m.mutate("completing task", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
			entry, err := r.CompleteTask(ctx, id)
			if entry.ID == "" {
				return nil, "", err
			}
			return nil, id, err
		})

	case detail.ActionDelete:
		if a.History {
			return m, m.mutate("deleting history entry", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
				return nil, id, r.DeleteHistoryEntry(ctx, id)
			})
		}
		return m, m.mutate("deleting task", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
			return nil, id, r.DeleteTask(ctx, id)
		})

	case detail.ActionRestore:
		return m, m.mutate("restoring task", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
			t, err := r.RestoreFromHistory(ctx, id)
			if t.ID == "" {
				return nil, "", err
			}
			return &t, id, err
		})

	case detail.ActionAddSubtask:
		m.previousView = m.currentView
		m.currentView = ViewForm
		return m, m.form.StartAddSubtask(id)

	case detail.ActionSubtaskNote:
		st, ok := m.detail.SelectedSubtask()
		if !ok || st.ID != a.SubtaskID {
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewForm
		return m, m.form.StartSubtaskNote(id, st)

	case detail.ActionToggleSubtask:
		return m, m.mutate("toggling subtask", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
			_, err := r.ToggleSubtask(ctx, id, a.SubtaskID)
			return reloadAfter(ctx, r, id, err)
		})

	case detail.ActionDeleteSubtask:
		return m, m.mutate("deleting subtask", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
			return reloadAfter(ctx, r, id, r.DeleteSubtask(ctx, id, a.SubtaskID))
		})
	}
	return m, nil
}

func (m Model) addTask(title, due string) tea.Cmd {
	return m.mutate("adding task", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
		t, err := r.AddTask(ctx, title, due)
		if t.ID == "" {
			return nil, "", err
		}
		return &t, "", err
	})
}

func (m Model) updateTask(id, title, due, note string) tea.Cmd {
	return m.mutate("updating task", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
		t, err := r.UpdateTask(ctx, id, repository.TaskUpdate{Title: &title, DueDate: &due, Note: &note})
		if t.ID == "" {
			return nil, "", err
		}
		return &t, "", err
	})
}

func (m Model) addSubtask(taskID, text string) tea.Cmd {
	return m.mutate("adding subtask", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
		_, err := r.AddSubtask(ctx, taskID, text)
		return reloadAfter(ctx, r, taskID, err)
	})
}

func (m Model) updateSubtaskNote(taskID, subtaskID, note string) tea.Cmd {
	return m.mutate("updating subtask note", func(ctx context.Context, r *repository.Repository) (*model.Task, string, error) {
		_, err := r.UpdateSubtaskNote(ctx, taskID, subtaskID, note)
		return reloadAfter(ctx, r, taskID, err)
	})
}

// mutate runs fn off the UI goroutine and reports the result as a
// mutationMsg.
func (m Model) mutate(op string, fn func(ctx context.Context, r *repository.Repository) (*model.Task, string, error)) tea.Cmd {
	repo := m.repo
	return func() tea.Msg {
		task, removed, err := fn(context.Background(), repo)
		return mutationMsg{op: op, task: task, removed: removed, err: err}
	}
}

// reloadAfter re-reads a task after a subtask write that returned err. A
// storage error leaves the write applied in memory, so the task is still
// re-read and the error kept.
func reloadAfter(ctx context.Context, r *repository.Repository, id string, err error) (*model.Task, string, error) {
	if err != nil && !errors.Is(err, model.ErrStorage) {
		return nil, "", err
	}
	t, gerr := r.GetTask(ctx, id)
	if gerr != nil {
		return nil, "", errors.Join(err, gerr)
	}
	return &t, "", err
}

// withTask reads a live task and wraps the result with wrap.
func (m Model) withTask(id string, wrap func(model.Task, error) tea.Msg) tea.Cmd {
	repo := m.repo
	return func() tea.Msg {
		return wrap(repo.GetTask(context.Background(), id))
	}
}

// handleMutation reflects a write in the views and the notification, then
// reloads both lists. A storage error arrives with the change already
// applied in memory, so it is reflected like a success.
func (m Model) handleMutation(msg mutationMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setError(msg.op, msg.err)
	} else {
		m.errMessage = ""
	}

	shownID, _ := m.detail.CurrentID()
	if msg.task != nil {
		if m.bridge != nil {
			m.bridge.Refresh(*msg.task)
		}
		if m.currentView == ViewDetail && shownID == msg.task.ID {
			m.detail.SetTask(*msg.task)
		}
	}
	applied := msg.err == nil || errors.Is(msg.err, model.ErrStorage)
	if msg.removed != "" && applied {
		if m.bridge != nil {
			m.bridge.Forget(msg.removed)
		}
		if m.currentView == ViewDetail && shownID == msg.removed {
			m.currentView = ViewList
		}
	}
	m.syncPinned()

	return m, tea.Batch(
		m.lists[tasklist.Active].Load(),
		m.lists[tasklist.History].Load(),
	)
}

// loadDetail returns a command that reads the record to show.
func (m Model) loadDetail(history bool, id string) tea.Cmd {
	repo := m.repo
	return func() tea.Msg {
		ctx := context.Background()
		if history {
			h, err := repo.GetHistoryEntry(ctx, id)
			if err != nil {
				return detailLoadedMsg{err: err}
			}
			return detailLoadedMsg{entry: &h}
		}
		t, err := repo.GetTask(ctx, id)
		if err != nil {
			return detailLoadedMsg{err: err}
		}
		return detailLoadedMsg{task: &t}
	}
}

// refreshPinned re-reads the pinned task so its countdown stays current.
func (m Model) refreshPinned() tea.Cmd {
	if m.bridge == nil || m.bridge.Pinned() == "" {
		return nil
	}
	id := m.bridge.Pinned()
	repo := m.repo
	return func() tea.Msg {
		t, err := repo.GetTask(context.Background(), id)
		return pinRefreshMsg{id: id, task: t, err: err}
	}
}

func (m *Model) handlePinRefresh(msg pinRefreshMsg) {
	switch {
	case msg.err == nil:
		m.bridge.Refresh(msg.task)
	case errors.Is(msg.err, model.ErrNotFound):
		m.bridge.Forget(msg.id)
		m.syncPinned()
	default:
		m.setError("refreshing notification", msg.err)
	}
}
