package model

import "time"

// HistoryEntry is a frozen snapshot of a completed task. It reuses the
// original task id.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	DueDate     time.Time `json:"due_date"`
	Note        string    `json:"note"`
	CompletedAt time.Time `json:"completed_at"`

	// Subtasks is populated by read operations.
	Subtasks []HistorySubtask `json:"subtasks,omitempty"`
}

// HistorySubtask is a copy of a subtask taken when its task was completed.
// It has no link to a live task.
type HistorySubtask struct {
	ID        string `json:"id"`
	HistoryID string `json:"history_id"`
	Text      string `json:"text"`
	Note      string `json:"note"`
	Completed bool   `json:"completed"`
	SortOrder int    `json:"sort_order"`
}

// Progress returns the rounded percentage of subtasks that were completed
// when the task was moved to history.
func (h HistoryEntry) Progress() int {
	done := 0
	for _, st := range h.Subtasks {
		if st.Completed {
			done++
		}
	}
	return percent(done, len(h.Subtasks))
}

// Clone returns a deep copy of the entry.
func (h HistoryEntry) Clone() HistoryEntry {
	out := h
	out.Subtasks = nil
	if len(h.Subtasks) > 0 {
		out.Subtasks = append([]HistorySubtask(nil), h.Subtasks...)
	}
	return out
}
