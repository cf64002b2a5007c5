package model

import "time"

// ListItem is what the list views render. Task (active) and HistoryEntry
// (completed) implement it.
type ListItem interface {
	GetID() string
	GetTitle() string
	GetNote() string
	GetDueDate() time.Time
	SubtaskCount() int
	Progress() int
	IsCompleted() bool
}

// Task implements ListItem.

func (t Task) GetID() string         { return t.ID }
func (t Task) GetTitle() string      { return t.Title }
func (t Task) GetNote() string       { return t.Note }
func (t Task) GetDueDate() time.Time { return t.DueDate }
func (t Task) SubtaskCount() int     { return len(t.Subtasks) }
func (t Task) IsCompleted() bool     { return false }

// HistoryEntry implements ListItem.

func (h HistoryEntry) GetID() string         { return h.ID }
func (h HistoryEntry) GetTitle() string      { return h.Title }
func (h HistoryEntry) GetNote() string       { return h.Note }
func (h HistoryEntry) GetDueDate() time.Time { return h.DueDate }
func (h HistoryEntry) SubtaskCount() int     { return len(h.Subtasks) }
func (h HistoryEntry) IsCompleted() bool     { return true }
