package store

import (
	"fmt"
	"sort"

	"github.com/nhle/checklist/internal/model"
)

// Tx is a view of the working set inside View or Update. Lookups report
// absence as (zero, false). Records are returned by value, flat, with
// Task.Subtasks and HistoryEntry.Subtasks left nil.
//
// A Tx must not be used after the function it was passed to returns.
type Tx struct {
	s        *Store
	writable bool
	undo     []func()
}

func (tx *Tx) record(fn func()) {
	tx.undo = append(tx.undo, fn)
}

// rollback undoes every mutation in reverse order.
func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *Tx) checkWritable() error {
	if !tx.writable {
		return ErrReadOnly
	}
	return nil
}

// Task returns the live task with the given id.
func (tx *Tx) Task(id string) (model.Task, bool) {
	t, ok := tx.s.tasks[id]
	return t, ok
}

// Tasks returns every live task ordered by id.
func (tx *Tx) Tasks() []model.Task {
	out := make([]model.Task, 0, len(tx.s.tasks))
	for _, t := range tx.s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PutTask inserts or replaces a task. The id must not belong to a live
// history entry.
func (tx *Tx) PutTask(t model.Task) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if t.ID == "" {
		return fmt.Errorf("putting task: empty id")
	}
	if _, ok := tx.s.history[t.ID]; ok {
		return fmt.Errorf("putting task %s: id is live in history", t.ID)
	}

	t.Subtasks = nil
	prev, existed := tx.s.tasks[t.ID]
	tx.s.tasks[t.ID] = t
	tx.record(func() {
		if existed {
			tx.s.tasks[t.ID] = prev
		} else {
			delete(tx.s.tasks, t.ID)
		}
	})
	return nil
}

// DeleteTask removes a task and all of its subtasks. Deleting a missing
// task is a no-op.
func (tx *Tx) DeleteTask(id string) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	prev, ok := tx.s.tasks[id]
	if !ok {
		return nil
	}

	for _, st := range tx.Subtasks(id) {
		if err := tx.DeleteSubtask(st.ID); err != nil {
			return err
		}
	}

	delete(tx.s.tasks, id)
	tx.record(func() { tx.s.tasks[id] = prev })
	return nil
}

// Subtask returns the subtask with the given id.
func (tx *Tx) Subtask(id string) (model.Subtask, bool) {
	st, ok := tx.s.subtasks[id]
	return st, ok
}

// Subtasks returns the subtasks of a task ordered by SortOrder, then id.
func (tx *Tx) Subtasks(taskID string) []model.Subtask {
	var out []model.Subtask
	for _, st := range tx.s.subtasks {
		if st.TaskID == taskID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PutSubtask inserts or replaces a subtask. Its TaskID must name a live
// task.
func (tx *Tx) PutSubtask(st model.Subtask) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if st.ID == "" {
		return fmt.Errorf("putting subtask: empty id")
	}
	if _, ok := tx.s.tasks[st.TaskID]; !ok {
		return fmt.Errorf("putting subtask %s: task %s is not live", st.ID, st.TaskID)
	}

	prev, existed := tx.s.subtasks[st.ID]
	tx.s.subtasks[st.ID] = st
	tx.record(func() {
		if existed {
			tx.s.subtasks[st.ID] = prev
		} else {
			delete(tx.s.subtasks, st.ID)
		}
	})
	return nil
}

// DeleteSubtask removes a subtask. Deleting a missing subtask is a no-op.
func (tx *Tx) DeleteSubtask(id string) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	prev, ok := tx.s.subtasks[id]
	if !ok {
		return nil
	}
	delete(tx.s.subtasks, id)
	tx.record(func() { tx.s.subtasks[id] = prev })
	return nil
}

// History returns the history entry with the given id.
func (tx *Tx) History(id string) (model.HistoryEntry, bool) {
	h, ok := tx.s.history[id]
	return h, ok
}

// HistoryEntries returns every history entry ordered by id.
func (tx *Tx) HistoryEntries() []model.HistoryEntry {
	out := make([]model.HistoryEntry, 0, len(tx.s.history))
	for _, h := range tx.s.history {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PutHistory inserts or replaces a history entry. The id must not belong
// to a live task.
func (tx *Tx) PutHistory(h model.HistoryEntry) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if h.ID == "" {
		return fmt.Errorf("putting history entry: empty id")
	}
	if _, ok := tx.s.tasks[h.ID]; ok {
		return fmt.Errorf("putting history entry %s: id is a live task", h.ID)
	}

	h.Subtasks = nil
	prev, existed := tx.s.history[h.ID]
	tx.s.history[h.ID] = h
	tx.record(func() {
		if existed {
			tx.s.history[h.ID] = prev
		} else {
			delete(tx.s.history, h.ID)
		}
	})
	return nil
}

// DeleteHistory removes a history entry and its subtask snapshots.
// Deleting a missing entry is a no-op.
func (tx *Tx) DeleteHistory(id string) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	prev, ok := tx.s.history[id]
	if !ok {
		return nil
	}

	for _, hs := range tx.HistorySubtasks(id) {
		hs := hs
		delete(tx.s.historySubtasks, hs.ID)
		tx.record(func() { tx.s.historySubtasks[hs.ID] = hs })
	}

	delete(tx.s.history, id)
	tx.record(func() { tx.s.history[id] = prev })
	return nil
}

// HistorySubtask returns a subtask snapshot by id.
func (tx *Tx) HistorySubtask(id string) (model.HistorySubtask, bool) {
	hs, ok := tx.s.historySubtasks[id]
	return hs, ok
}

// HistorySubtasks returns the subtask snapshots of a history entry ordered
// by SortOrder, then id.
func (tx *Tx) HistorySubtasks(historyID string) []model.HistorySubtask {
	var out []model.HistorySubtask
	for _, hs := range tx.s.historySubtasks {
		if hs.HistoryID == historyID {
			out = append(out, hs)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PutHistorySubtask inserts or replaces a subtask snapshot. Its HistoryID
// must name a live history entry.
func (tx *Tx) PutHistorySubtask(hs model.HistorySubtask) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if hs.ID == "" {
		return fmt.Errorf("putting history subtask: empty id")
	}
	if _, ok := tx.s.history[hs.HistoryID]; !ok {
		return fmt.Errorf("putting history subtask %s: entry %s is not live", hs.ID, hs.HistoryID)
	}

	prev, existed := tx.s.historySubtasks[hs.ID]
	tx.s.historySubtasks[hs.ID] = hs
	tx.record(func() {
		if existed {
			tx.s.historySubtasks[hs.ID] = prev
		} else {
			delete(tx.s.historySubtasks, hs.ID)
		}
	})
	return nil
}
