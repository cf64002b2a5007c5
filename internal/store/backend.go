package store

import (
	"context"
	"sort"

	"github.com/nhle/checklist/internal/model"
)

// Snapshot is the complete persisted state. Records are flat: Task.Subtasks
// and HistoryEntry.Subtasks are not populated, subtasks are listed in their
// own slices.
type Snapshot struct {
	Tasks           []model.Task           `json:"tasks"`
	Subtasks        []model.Subtask        `json:"subtasks"`
	History         []model.HistoryEntry   `json:"history"`
	HistorySubtasks []model.HistorySubtask `json:"history_subtasks"`
}

// Len returns the total number of records in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Tasks) + len(s.Subtasks) + len(s.History) + len(s.HistorySubtasks)
}

// sortSnapshot orders every slice by id so saves are deterministic.
func sortSnapshot(s *Snapshot) {
	sort.Slice(s.Tasks, func(i, j int) bool { return s.Tasks[i].ID < s.Tasks[j].ID })
	sort.Slice(s.Subtasks, func(i, j int) bool { return s.Subtasks[i].ID < s.Subtasks[j].ID })
	sort.Slice(s.History, func(i, j int) bool { return s.History[i].ID < s.History[j].ID })
	sort.Slice(s.HistorySubtasks, func(i, j int) bool {
		return s.HistorySubtasks[i].ID < s.HistorySubtasks[j].ID
	})
}

// Backend is the durable medium behind a Store. Save always receives the
// whole state and must replace what was stored before, atomically.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// Preserver is implemented by backends that can copy unreadable saved
// state aside. After a failed Load the store calls Preserve once before
// its first Save, and does not save at all when the backend is not a
// Preserver or Preserve fails.
type Preserver interface {
	Preserve(ctx context.Context) error
}
