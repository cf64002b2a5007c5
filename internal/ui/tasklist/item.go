package tasklist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/theme"
)

// ListItemWrapper wraps a model.ListItem so it can be used in a bubbles/list.
type ListItemWrapper struct {
	Item model.ListItem
}

// FilterValue returns the string used for fuzzy filtering.
func (w ListItemWrapper) FilterValue() string {
	return w.Item.GetTitle()
}

// Title returns the item title for the list.
func (w ListItemWrapper) Title() string {
	return w.Item.GetTitle()
}

// Description returns a short summary line for the list.
func (w ListItemWrapper) Description() string {
	return fmt.Sprintf("%d%% | due %s", w.Item.Progress(), w.Item.GetDueDate().Format("Jan 02 15:04"))
}

// rowState is shared by reference between the Model and its delegate so
// the pinned marker and countdowns follow the app without rebuilding the
// list.
type rowState struct {
	pinned string
	now    time.Time
}

// ItemDelegate implements list.ItemDelegate for rendering list items.
type ItemDelegate struct {
	state *rowState
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	wrapper, ok := item.(ListItemWrapper)
	if !ok {
		return
	}

	line := d.renderRow(wrapper.Item)
	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// renderRow builds the row text for li.
func (d ItemDelegate) renderRow(li model.ListItem) string {
	if h, ok := li.(model.HistoryEntry); ok {
		return d.renderHistory(h)
	}
	return d.renderActive(li)
}

func (d ItemDelegate) renderActive(li model.ListItem) string {
	now := d.now()
	cd := model.CountdownTo(li.GetDueDate(), now)

	progress := ""
	if li.SubtaskCount() > 0 {
		progress = " " + theme.ProgressStyle(li.Progress()).Render(fmt.Sprintf("%d%%", li.Progress()))
	}

	pin := ""
	if d.state != nil && d.state.pinned == li.GetID() {
		pin = theme.PinnedStyle.Render(" 📌")
	}

	countdown := theme.CountdownStyle(cd.Urgent, cd.Overdue).Render(cd.Text)

	return fmt.Sprintf("○ %s%s  %s%s", li.GetTitle(), progress, countdown, pin)
}

func (d ItemDelegate) renderHistory(h model.HistoryEntry) string {
	progress := ""
	if len(h.Subtasks) > 0 {
		progress = fmt.Sprintf(" %d%%", h.Progress())
	}
	line := fmt.Sprintf(
		"✓ %s%s  completed %s",
		h.Title, progress, relativeTime(h.CompletedAt, d.now()),
	)
	return theme.DimmedStyle.Render(line)
}

func (d ItemDelegate) now() time.Time {
	if d.state == nil || d.state.now.IsZero() {
		return time.Now()
	}
	return d.state.now
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 02, 2006")
	}
}
