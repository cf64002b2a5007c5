package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// TabStyle renders an inactive tab in the header.
var TabStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Padding(0, 1)

// ActiveTabStyle renders the selected tab.
var ActiveTabStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Underline(true).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// ErrorBarStyle replaces StatusBarStyle while a storage error is shown.
var ErrorBarStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorRed).
	Padding(0, 1)

// BannerStyle renders the pinned-task notification line.
var BannerStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorMagenta).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle is used for completed subtasks and history rows.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// PinnedStyle marks the task mirrored in the notification.
var PinnedStyle = lipgloss.NewStyle().
	Foreground(ColorMagenta).
	Bold(true)

// DueDateStyle renders due dates.
var DueDateStyle = lipgloss.NewStyle().
	Foreground(ColorBlue)

// CountdownStyle colors a countdown: red when overdue, orange when urgent.
func CountdownStyle(urgent, overdue bool) lipgloss.Style {
	base := lipgloss.NewStyle()

	switch {
	case overdue:
		return base.Bold(true).Foreground(ColorRed)
	case urgent:
		return base.Foreground(ColorOrange)
	default:
		return base.Foreground(ColorGreen)
	}
}

// ProgressStyle colors a completion percentage.
func ProgressStyle(percent int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch {
	case percent >= 100:
		return base.Foreground(ColorGreen)
	case percent >= 50:
		return base.Foreground(ColorYellow)
	case percent > 0:
		return base.Foreground(ColorOrange)
	default:
		return base.Foreground(ColorGray)
	}
}

// GlamourStyle maps the configured display theme to a glamour style name.
func GlamourStyle(name string) string {
	switch name {
	case "light", "dark", "notty", "ascii", "dracula", "tokyo-night", "pink":
		return name
	default:
		return "dark"
	}
}
