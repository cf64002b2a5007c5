package model

import (
	"fmt"
	"strings"
	"time"
)

// localDueLayouts are accepted in addition to RFC 3339. They carry no zone
// and are read in local time; "2006-01-02T15:04" is what an HTML
// datetime-local input produces.
var localDueLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDue parses a due date. An empty or unparsable value is a
// ValidationError.
func ParseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ValidationError{Field: "due date", Reason: "required"}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localDueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ValidationError{
		Field:  "due date",
		Reason: fmt.Sprintf("cannot parse %q", s),
	}
}

// Countdown is the time remaining until a due date, formatted for display.
type Countdown struct {
	Text    string
	Urgent  bool
	Overdue bool
}

// CountdownTo computes the countdown from now to due.
func CountdownTo(due, now time.Time) Countdown {
	diff := due.Sub(now)
	if diff < 0 {
		return Countdown{Text: "Overdue!", Urgent: true, Overdue: true}
	}

	const day = 24 * time.Hour
	days := int(diff / day)
	hours := int(diff % day / time.Hour)
	minutes := int(diff % time.Hour / time.Minute)

	switch {
	case days > 0:
		return Countdown{
			Text:   fmt.Sprintf("%dd %dh remaining", days, hours),
			Urgent: days < 2,
		}
	case hours > 0:
		return Countdown{Text: fmt.Sprintf("%dh %dm remaining", hours, minutes), Urgent: true}
	default:
		return Countdown{Text: fmt.Sprintf("%dm remaining", minutes), Urgent: true}
	}
}
