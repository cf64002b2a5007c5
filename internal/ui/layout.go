package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/checklist/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	BannerHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1; the banner line is
// reserved with SetBanner.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// SetBanner reserves (or releases) one line for the pinned-task banner.
func (l *Layout) SetBanner(shown bool) {
	if shown {
		l.BannerHeight = 1
	} else {
		l.BannerHeight = 0
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header, banner and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.BannerHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar: the application title, the
// tabs with the active one highlighted, and a right-aligned status.
func (l Layout) RenderHeader(title string, tabs []string, active int, status string) string {
	parts := []string{theme.HeaderStyle.Render(title)}
	for i, tab := range tabs {
		style := theme.TabStyle
		if i == active {
			style = theme.ActiveTabStyle
		}
		parts = append(parts, style.Render(tab))
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	statusRendered := theme.HelpStyle.
		Align(lipgloss.Right).
		PaddingRight(1).
		Render(status)

	gap := l.Width -
		lipgloss.Width(left) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		left,
		filler,
		statusRendered,
	)
}

// RenderBanner renders the pinned-task line across the full width.
func (l Layout) RenderBanner(text string) string {
	return theme.BannerStyle.Width(l.Width).Render(text)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
// When errMsg is set it is shown instead, in the error style.
func (l Layout) RenderStatusBar(hints, errMsg string) string {
	style := theme.StatusBarStyle
	text := hints
	if errMsg != "" {
		style = theme.ErrorBarStyle
		text = errMsg
	}
	rendered := style.Render(text)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, optional banner, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	banner string,
	content string,
	statusBar string,
) string {
	rows := []string{header}
	if banner != "" {
		rows = append(rows, banner)
	}
	rows = append(rows, content, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
