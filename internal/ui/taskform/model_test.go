package taskform

import (
	"testing"
	"time"

	"github.com/nhle/checklist/internal/model"
)

func TestValidateDue(t *testing.T) {
	for _, s := range []string{"2026-04-01", "2026-04-01 18:30", "2026-04-01T18:30", "2026-04-01T18:30:00Z"} {
		if err := validateDue(s); err != nil {
			t.Errorf("validateDue(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"", "tomorrow", "01/04/2026"} {
		if err := validateDue(s); err == nil {
			t.Errorf("validateDue(%q) should fail", s)
		}
	}
}

func TestStartCreatePrefillsTomorrowMorning(t *testing.T) {
	m := New(80, 24)
	m.StartCreate(time.Date(2026, 3, 31, 22, 15, 0, 0, time.Local))

	if m.fb.due != "2026-04-01 09:00" {
		t.Fatalf("unexpected default due %q", m.fb.due)
	}
	if m.mode != ModeCreateTask || m.taskID != "" {
		t.Fatalf("create form should not carry a task id")
	}
}

func TestSubmitMessages(t *testing.T) {
	m := New(80, 24)
	m.StartEdit(model.Task{ID: "t1", Title: "Old", DueDate: time.Date(2026, 4, 1, 9, 0, 0, 0, time.Local), Note: "n"})
	m.fb.title = "New"

	msg, ok := m.handleSubmit()().(TaskSubmittedMsg)
	if !ok || msg.ID != "t1" || msg.Title != "New" || msg.Due != "2026-04-01 09:00" || msg.Note != "n" {
		t.Fatalf("unexpected edit message: %#v", msg)
	}

	m.StartSubtaskNote("t1", model.Subtask{ID: "s1", Text: "Milk", Note: "2%"})
	note, ok := m.handleSubmit()().(SubtaskNoteSubmittedMsg)
	if !ok || note.TaskID != "t1" || note.SubtaskID != "s1" || note.Note != "2%" {
		t.Fatalf("unexpected note message: %#v", note)
	}

	m.StartAddSubtask("t1")
	m.fb.text = "Bread"
	add, ok := m.handleSubmit()().(SubtaskSubmittedMsg)
	if !ok || add.TaskID != "t1" || add.Text != "Bread" {
		t.Fatalf("unexpected add message: %#v", add)
	}
}
