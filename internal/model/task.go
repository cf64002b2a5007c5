package model

import (
	"math"
	"time"
)

// Task is a live checklist item with a due date.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`

	// Title is the human-readable summary of the task.
	Title string `json:"title"`

	// DueDate is when the task is due.
	DueDate time.Time `json:"due_date"`

	// Note is free text attached to the task.
	Note string `json:"note"`

	// CreatedAt is when the task was created (or restored).
	CreatedAt time.Time `json:"created_at"`

	// Subtasks is populated by read operations. The store keeps subtasks
	// as separate records keyed by TaskID.
	Subtasks []Subtask `json:"subtasks,omitempty"`
}

// Subtask is a checkable sub-item. Its lifecycle is bound to the parent
// task (CASCADE delete).
type Subtask struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Text      string `json:"text"`
	Note      string `json:"note"`
	Completed bool   `json:"completed"`
	SortOrder int    `json:"sort_order"`
}

// Progress returns the rounded percentage of completed subtasks, or 0 when
// the task has none.
func (t Task) Progress() int {
	done := 0
	for _, st := range t.Subtasks {
		if st.Completed {
			done++
		}
	}
	return percent(done, len(t.Subtasks))
}

// IsOverdue reports whether the due date lies before now.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate.Before(now)
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	out.Subtasks = nil
	if len(t.Subtasks) > 0 {
		out.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	return out
}

// Subtask returns the subtask with the given id.
func (t Task) Subtask(id string) (Subtask, bool) {
	for _, st := range t.Subtasks {
		if st.ID == id {
			return st, true
		}
	}
	return Subtask{}, false
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
