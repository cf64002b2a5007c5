package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/nhle/checklist/internal/model"
)

const dateLayout = "Mon Jan 02 15:04"

var (
	bold   = color.New(color.Bold)
	faint  = color.New(color.Faint)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
)

// printer renders repository records for the terminal.
type printer struct {
	w   io.Writer
	now time.Time
}

func newPrinter(w io.Writer, now time.Time) *printer {
	return &printer{w: w, now: now}
}

// Tasks prints the active tasks as a table.
func (p *printer) Tasks(tasks []model.Task) {
	if len(tasks) == 0 {
		_, _ = faint.Fprintln(p.w, "no tasks")
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("TITLE"), bold.Sprint("DUE"), bold.Sprint("LEFT"), bold.Sprint("DONE"))
	for _, t := range tasks {
		tbl.AddRow(
			faint.Sprint(t.ID),
			t.Title,
			t.DueDate.Local().Format(dateLayout),
			p.countdown(t.DueDate),
			progress(t.Progress(), len(t.Subtasks)),
		)
	}
	_, _ = fmt.Fprintln(p.w, tbl)
}

// History prints the history entries as a table.
func (p *printer) History(entries []model.HistoryEntry) {
	if len(entries) == 0 {
		_, _ = faint.Fprintln(p.w, "no completed tasks")
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("TITLE"), bold.Sprint("COMPLETED"), bold.Sprint("DONE"))
	for _, h := range entries {
		tbl.AddRow(
			faint.Sprint(h.ID),
			h.Title,
			h.CompletedAt.Local().Format(dateLayout),
			progress(h.Progress(), len(h.Subtasks)),
		)
	}
	_, _ = fmt.Fprintln(p.w, tbl)
}

// Task prints one task with its note and subtasks.
func (p *printer) Task(t model.Task) {
	_, _ = fmt.Fprintln(p.w, bold.Sprint(t.Title))
	_, _ = fmt.Fprintf(p.w, "%s %s  %s\n", faint.Sprint("due"), t.DueDate.Local().Format(dateLayout), p.countdown(t.DueDate))
	_, _ = fmt.Fprintf(p.w, "%s %s\n", faint.Sprint("id "), t.ID)
	if t.Note != "" {
		_, _ = fmt.Fprintf(p.w, "\n%s\n", t.Note)
	}
	if len(t.Subtasks) == 0 {
		return
	}

	_, _ = fmt.Fprintln(p.w)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.Wrap = true
	tbl.MaxColWidth = 60
	for _, st := range t.Subtasks {
		box := "[ ]"
		if st.Completed {
			box = green.Sprint("[x]")
		}
		text := st.Text
		if st.Note != "" {
			text += faint.Sprintf(" (%s)", st.Note)
		}
		tbl.AddRow(box, text, faint.Sprint(st.ID))
	}
	_, _ = fmt.Fprintln(p.w, tbl)
	_, _ = fmt.Fprintf(p.w, "\n%s %s\n", faint.Sprint("progress"), progress(t.Progress(), len(t.Subtasks)))
}

func (p *printer) countdown(due time.Time) string {
	cd := model.CountdownTo(due, p.now)
	switch {
	case cd.Overdue:
		return red.Sprint(cd.Text)
	case cd.Urgent:
		return yellow.Sprint(cd.Text)
	default:
		return green.Sprint(cd.Text)
	}
}

func progress(percent, total int) string {
	if total == 0 {
		return faint.Sprint("-")
	}
	s := fmt.Sprintf("%d%%", percent)
	if percent == 100 {
		return green.Sprint(s)
	}
	return s
}
