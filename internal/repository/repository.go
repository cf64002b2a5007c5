// Package repository is the application API over the store: task CRUD,
// subtask edits, and the atomic complete/restore transitions between live
// tasks and history.
package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/store"
)

// Repository owns every state transition. It is safe for concurrent use;
// the underlying store serializes writers.
type Repository struct {
	store *store.Store
	now   func() time.Time
	newID func() string
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the time source used for creation and completion stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDs sets the id allocator.
func WithIDs(newID func() string) Option {
	return func(r *Repository) { r.newID = newID }
}

// New returns a Repository over s.
func New(s *store.Store, opts ...Option) *Repository {
	r := &Repository{
		store: s,
		now:   time.Now,
		newID: newUUID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// newUUID returns a time-ordered UUIDv7, falling back to a random v4.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// TaskUpdate lists the fields to change. Nil fields keep their value.
type TaskUpdate struct {
	Title   *string
	DueDate *string
	Note    *string
}

// AddTask creates a task with no note and no subtasks. On a StorageError
// the task has still been added in memory and is returned with the error.
func (r *Repository) AddTask(ctx context.Context, title, due string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, &model.ValidationError{Field: "title", Reason: "required"}
	}
	dueAt, err := model.ParseDue(due)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		ID:        r.newID(),
		Title:     title,
		DueDate:   dueAt,
		CreatedAt: r.now(),
	}
	var out model.Task
	err = r.update(ctx, "adding task", func(tx *store.Tx) error {
		if err := tx.PutTask(task); err != nil {
			return err
		}
		out = task
		return nil
	})
	return out, err
}

// UpdateTask changes the given fields of a task. Like AddTask it returns
// the applied task alongside a StorageError.
func (r *Repository) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (model.Task, error) {
	var (
		title string
		due   time.Time
	)
	if upd.Title != nil {
		title = strings.TrimSpace(*upd.Title)
		if title == "" {
			return model.Task{}, &model.ValidationError{Field: "title", Reason: "required"}
		}
	}
	if upd.DueDate != nil {
		var err error
		if due, err = model.ParseDue(*upd.DueDate); err != nil {
			return model.Task{}, err
		}
	}

	var out model.Task
	err := r.update(ctx, "updating task", func(tx *store.Tx) error {
		task, ok := tx.Task(id)
		if !ok {
			return &model.NotFoundError{Kind: model.KindTask, ID: id}
		}
		if upd.Title != nil {
			task.Title = title
		}
		if upd.DueDate != nil {
			task.DueDate = due
		}
		if upd.Note != nil {
			task.Note = strings.TrimSpace(*upd.Note)
		}
		if err := tx.PutTask(task); err != nil {
			return err
		}
		out = withSubtasks(tx, task)
		return nil
	})
	return out, err
}

// DeleteTask removes a task and its subtasks. Deleting a missing task is
// not an error.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	return r.update(ctx, "deleting task", func(tx *store.Tx) error {
		return tx.DeleteTask(id)
	})
}

// GetTask returns a task with its subtasks.
func (r *Repository) GetTask(ctx context.Context, id string) (model.Task, error) {
	var out model.Task
	err := r.view(ctx, func(tx *store.Tx) error {
		task, ok := tx.Task(id)
		if !ok {
			return &model.NotFoundError{Kind: model.KindTask, ID: id}
		}
		out = withSubtasks(tx, task)
		return nil
	})
	return out, err
}

// AddSubtask appends an incomplete subtask to a task. The subtask is
// returned alongside a StorageError.
func (r *Repository) AddSubtask(ctx context.Context, taskID, text string) (model.Subtask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Subtask{}, &model.ValidationError{Field: "subtask text", Reason: "required"}
	}

	var out model.Subtask
	err := r.update(ctx, "adding subtask", func(tx *store.Tx) error {
		if _, ok := tx.Task(taskID); !ok {
			return &model.NotFoundError{Kind: model.KindTask, ID: taskID}
		}
		next := 0
		for _, st := range tx.Subtasks(taskID) {
			if st.SortOrder >= next {
				next = st.SortOrder + 1
			}
		}
		st := model.Subtask{
			ID:        r.newID(),
			TaskID:    taskID,
			Text:      text,
			SortOrder: next,
		}
		if err := tx.PutSubtask(st); err != nil {
			return err
		}
		out = st
		return nil
	})
	return out, err
}

// ToggleSubtask flips the completion flag of a subtask.
func (r *Repository) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (model.Subtask, error) {
	return r.editSubtask(ctx, "toggling subtask", taskID, subtaskID, func(st *model.Subtask) {
		st.Completed = !st.Completed
	})
}

// UpdateSubtaskNote replaces the note of a subtask.
func (r *Repository) UpdateSubtaskNote(ctx context.Context, taskID, subtaskID, note string) (model.Subtask, error) {
	note = strings.TrimSpace(note)
	return r.editSubtask(ctx, "updating subtask note", taskID, subtaskID, func(st *model.Subtask) {
		st.Note = note
	})
}

// RenameSubtask replaces the text of a subtask.
func (r *Repository) RenameSubtask(ctx context.Context, taskID, subtaskID, text string) (model.Subtask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Subtask{}, &model.ValidationError{Field: "subtask text", Reason: "required"}
	}
	return r.editSubtask(ctx, "renaming subtask", taskID, subtaskID, func(st *model.Subtask) {
		st.Text = text
	})
}

// DeleteSubtask removes a subtask from a task.
func (r *Repository) DeleteSubtask(ctx context.Context, taskID, subtaskID string) error {
	return r.update(ctx, "deleting subtask", func(tx *store.Tx) error {
		if _, err := lookupSubtask(tx, taskID, subtaskID); err != nil {
			return err
		}
		return tx.DeleteSubtask(subtaskID)
	})
}

func (r *Repository) editSubtask(
	ctx context.Context,
	op, taskID, subtaskID string,
	edit func(*model.Subtask),
) (model.Subtask, error) {
	var out model.Subtask
	err := r.update(ctx, op, func(tx *store.Tx) error {
		st, err := lookupSubtask(tx, taskID, subtaskID)
		if err != nil {
			return err
		}
		edit(&st)
		if err := tx.PutSubtask(st); err != nil {
			return err
		}
		out = st
		return nil
	})
	return out, err
}

// lookupSubtask finds a subtask that belongs to the given live task.
func lookupSubtask(tx *store.Tx, taskID, subtaskID string) (model.Subtask, error) {
	if _, ok := tx.Task(taskID); !ok {
		return model.Subtask{}, &model.NotFoundError{Kind: model.KindTask, ID: taskID}
	}
	st, ok := tx.Subtask(subtaskID)
	if !ok || st.TaskID != taskID {
		return model.Subtask{}, &model.NotFoundError{Kind: model.KindSubtask, ID: subtaskID}
	}
	return st, nil
}

// CompleteTask moves a task and its subtasks into history. The entry keeps
// the task id and is stamped with the current time. On a StorageError the
// move has still happened in memory and the entry is returned with the
// error.
func (r *Repository) CompleteTask(ctx context.Context, taskID string) (model.HistoryEntry, error) {
	var out model.HistoryEntry
	err := r.update(ctx, "completing task", func(tx *store.Tx) error {
		task, ok := tx.Task(taskID)
		if !ok {
			return &model.NotFoundError{Kind: model.KindTask, ID: taskID}
		}
		subs := tx.Subtasks(taskID)

		if err := tx.DeleteTask(taskID); err != nil {
			return err
		}

		entry := model.HistoryEntry{
			ID:          task.ID,
			Title:       task.Title,
			DueDate:     task.DueDate,
			Note:        task.Note,
			CompletedAt: r.now(),
		}
		if err := tx.PutHistory(entry); err != nil {
			return err
		}
		for _, st := range subs {
			hs := model.HistorySubtask{
				ID:        st.ID,
				HistoryID: entry.ID,
				Text:      st.Text,
				Note:      st.Note,
				Completed: st.Completed,
				SortOrder: st.SortOrder,
			}
			if err := tx.PutHistorySubtask(hs); err != nil {
				return err
			}
			entry.Subtasks = append(entry.Subtasks, hs)
		}
		out = entry
		return nil
	})
	return out, err
}

// RestoreFromHistory moves a history entry back to the live list as a new
// task with a fresh id. Subtasks are recreated with fresh ids and reset to
// incomplete. The new task is returned alongside a StorageError.
func (r *Repository) RestoreFromHistory(ctx context.Context, historyID string) (model.Task, error) {
	var out model.Task
	err := r.update(ctx, "restoring task", func(tx *store.Tx) error {
		entry, ok := tx.History(historyID)
		if !ok {
			return &model.NotFoundError{Kind: model.KindHistoryEntry, ID: historyID}
		}
		snaps := tx.HistorySubtasks(historyID)

		if err := tx.DeleteHistory(historyID); err != nil {
			return err
		}

		task := model.Task{
			ID:        r.newID(),
			Title:     entry.Title,
			DueDate:   entry.DueDate,
			Note:      entry.Note,
			CreatedAt: r.now(),
		}
		if task.ID == historyID {
			return errors.New("id allocator reused a history id")
		}
		if err := tx.PutTask(task); err != nil {
			return err
		}
		for _, hs := range snaps {
			st := model.Subtask{
				ID:        r.newID(),
				TaskID:    task.ID,
				Text:      hs.Text,
				Note:      hs.Note,
				SortOrder: hs.SortOrder,
			}
			if err := tx.PutSubtask(st); err != nil {
				return err
			}
			task.Subtasks = append(task.Subtasks, st)
		}
		out = task
		return nil
	})
	return out, err
}

// DeleteHistoryEntry permanently removes a history entry. Deleting a
// missing entry is not an error.
func (r *Repository) DeleteHistoryEntry(ctx context.Context, historyID string) error {
	return r.update(ctx, "deleting history entry", func(tx *store.Tx) error {
		return tx.DeleteHistory(historyID)
	})
}

// GetHistoryEntry returns a history entry with its subtask snapshots.
func (r *Repository) GetHistoryEntry(ctx context.Context, id string) (model.HistoryEntry, error) {
	var out model.HistoryEntry
	err := r.view(ctx, func(tx *store.Tx) error {
		entry, ok := tx.History(id)
		if !ok {
			return &model.NotFoundError{Kind: model.KindHistoryEntry, ID: id}
		}
		out = withHistorySubtasks(tx, entry)
		return nil
	})
	return out, err
}

// ListTasks returns every live task with its subtasks, ordered by due date
// ascending. Ties are broken by creation time, then id.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	err := r.view(ctx, func(tx *store.Tx) error {
		for _, t := range tx.Tasks() {
			out = append(out, withSubtasks(tx, t))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// ListHistory returns every history entry, most recently completed first.
// Ties are broken by id.
func (r *Repository) ListHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	err := r.view(ctx, func(tx *store.Tx) error {
		for _, h := range tx.HistoryEntries() {
			out = append(out, withHistorySubtasks(tx, h))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CompletedAt.Equal(b.CompletedAt) {
			return a.CompletedAt.After(b.CompletedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// Import inserts tasks and history entries with their ids, subtasks and
// timestamps preserved. Everything is inserted or nothing is. Text is
// stored as given.
func (r *Repository) Import(ctx context.Context, tasks []model.Task, history []model.HistoryEntry) error {
	return r.update(ctx, "importing records", func(tx *store.Tx) error {
		for _, t := range tasks {
			if err := importTask(tx, t); err != nil {
				return err
			}
		}
		for _, h := range history {
			if err := importHistory(tx, h); err != nil {
				return err
			}
		}
		return nil
	})
}

func importTask(tx *store.Tx, t model.Task) error {
	if t.ID == "" {
		return &model.ValidationError{Field: "task id", Reason: "required"}
	}
	if _, ok := tx.Task(t.ID); ok {
		return &model.ValidationError{Field: "task id", Reason: "duplicate " + t.ID}
	}
	if err := tx.PutTask(t); err != nil {
		return err
	}
	for _, st := range t.Subtasks {
		st.TaskID = t.ID
		if _, ok := tx.Subtask(st.ID); ok || st.ID == "" {
			return &model.ValidationError{Field: "subtask id", Reason: "missing or duplicate " + st.ID}
		}
		if err := tx.PutSubtask(st); err != nil {
			return err
		}
	}
	return nil
}

func importHistory(tx *store.Tx, h model.HistoryEntry) error {
	if h.ID == "" {
		return &model.ValidationError{Field: "history id", Reason: "required"}
	}
	if _, ok := tx.History(h.ID); ok {
		return &model.ValidationError{Field: "history id", Reason: "duplicate " + h.ID}
	}
	if err := tx.PutHistory(h); err != nil {
		return err
	}
	for _, hs := range h.Subtasks {
		hs.HistoryID = h.ID
		if _, ok := tx.HistorySubtask(hs.ID); ok || hs.ID == "" {
			return &model.ValidationError{Field: "history subtask id", Reason: "missing or duplicate " + hs.ID}
		}
		if err := tx.PutHistorySubtask(hs); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether there are no tasks and no history entries.
func (r *Repository) Empty(_ context.Context) bool {
	return r.store.Empty()
}

// LoadErr reports why the saved state could not be read at startup, or
// nil. The repository then holds only what was written since.
func (r *Repository) LoadErr() error {
	return r.store.LoadErr()
}

// Flush forces pending writes to durable storage.
func (r *Repository) Flush(ctx context.Context) error {
	if err := r.store.Flush(ctx); err != nil {
		return model.AsStorageError("flushing", model.StorageUnavailable, err)
	}
	return nil
}

// update runs fn in a store transaction. Validation and not-found errors
// pass through; anything else is reported as a StorageError. A StorageError
// after fn returned nil means the change is applied in memory but not yet
// durable.
func (r *Repository) update(ctx context.Context, op string, fn func(*store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(op, r.store.Update(fn))
}

func (r *Repository) view(ctx context.Context, fn func(*store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.View(fn)
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrNotFound):
		return err
	default:
		return model.AsStorageError(op, model.StorageUnavailable, err)
	}
}

func withSubtasks(tx *store.Tx, t model.Task) model.Task {
	t.Subtasks = tx.Subtasks(t.ID)
	return t
}

func withHistorySubtasks(tx *store.Tx, h model.HistoryEntry) model.HistoryEntry {
	h.Subtasks = tx.HistorySubtasks(h.ID)
	return h
}
