package tasklist

import (
	"strings"
	"testing"
	"time"

	"github.com/nhle/checklist/internal/model"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestRenderActiveRow(t *testing.T) {
	d := ItemDelegate{state: &rowState{now: now, pinned: "1"}}
	task := model.Task{
		ID:      "1",
		Title:   "Trip",
		DueDate: now.Add(26 * time.Hour),
		Subtasks: []model.Subtask{
			{ID: "a", Completed: true},
			{ID: "b"},
		},
	}

	row := d.renderRow(task)
	for _, want := range []string{"Trip", "50%", "1d 2h remaining", "📌"} {
		if !strings.Contains(row, want) {
			t.Fatalf("row %q missing %q", row, want)
		}
	}

	task.ID = "2"
	task.Subtasks = nil
	row = d.renderRow(task)
	if strings.Contains(row, "📌") || strings.Contains(row, "%") {
		t.Fatalf("unpinned task without subtasks rendered %q", row)
	}
}

func TestRenderOverdueRow(t *testing.T) {
	d := ItemDelegate{state: &rowState{now: now}}
	row := d.renderRow(model.Task{ID: "1", Title: "Late", DueDate: now.Add(-time.Hour)})
	if !strings.Contains(row, "Overdue!") {
		t.Fatalf("row %q should say overdue", row)
	}
}

func TestRenderHistoryRow(t *testing.T) {
	d := ItemDelegate{state: &rowState{now: now}}
	row := d.renderRow(model.HistoryEntry{
		ID:          "1",
		Title:       "Taxes",
		CompletedAt: now.Add(-3 * time.Hour),
		Subtasks:    []model.HistorySubtask{{ID: "a", Completed: true}},
	})
	for _, want := range []string{"✓", "Taxes", "100%", "completed 3h ago"} {
		if !strings.Contains(row, want) {
			t.Fatalf("row %q missing %q", row, want)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{2 * time.Hour, "2h ago"},
		{3 * 24 * time.Hour, "3d ago"},
		{30 * 24 * time.Hour, "Jan 30, 2026"},
	}
	for _, tc := range cases {
		if got := relativeTime(now.Add(-tc.ago), now); got != tc.want {
			t.Errorf("relativeTime(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}
