package app

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/checklist/internal/notify"
)

// bannerMsg reports that the banner changed; read it with Current.
type bannerMsg struct{}

// notificationActionMsg carries an interaction with the banner.
type notificationActionMsg struct {
	action notify.Action
}

// Banner is the terminal's notification capability: the pinned
// notification is drawn as a line under the header. Schedule and Cancel
// are called from the bridge worker; the UI receives changes through
// WaitForEvent.
type Banner struct {
	mu      sync.Mutex
	current *notify.Notification
	handler func(notify.Action)
	events  chan tea.Msg
}

// NewBanner creates a Banner.
func NewBanner() *Banner {
	return &Banner{events: make(chan tea.Msg, 16)}
}

// RequestPermission always grants; the user opted in through the
// notifications.enabled setting.
func (b *Banner) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

// Schedule shows n, replacing the current banner.
func (b *Banner) Schedule(_ context.Context, n notify.Notification) error {
	b.mu.Lock()
	b.current = &n
	b.mu.Unlock()
	b.send(bannerMsg{})
	return nil
}

// Cancel removes the banner if it shows id.
func (b *Banner) Cancel(_ context.Context, id string) error {
	b.mu.Lock()
	if b.current == nil || b.current.ID != id {
		b.mu.Unlock()
		return nil
	}
	b.current = nil
	b.mu.Unlock()
	b.send(bannerMsg{})
	return nil
}

// OnAction registers fn to receive banner interactions.
func (b *Banner) OnAction(fn func(notify.Action)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = fn
}

// Current returns the notification shown, if any.
func (b *Banner) Current() (notify.Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return notify.Notification{}, false
	}
	return *b.current, true
}

// Tap reports an interaction with the shown banner. It is a no-op when
// nothing is shown or no handler is registered.
func (b *Banner) Tap(actionID string) {
	b.mu.Lock()
	cur, fn := b.current, b.handler
	b.mu.Unlock()
	if cur == nil || fn == nil {
		return
	}
	fn(notify.Action{TaskID: cur.ID, ActionID: actionID})
}

// send delivers msg to the UI without blocking the bridge worker.
func (b *Banner) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	default:
		// Drop if the UI is not keeping up; the next change supersedes it.
	}
}

// WaitForEvent returns a tea.Cmd that waits for the next banner change or
// interaction. Call it again after handling the message to keep listening.
func (b *Banner) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.events
		if !ok {
			return nil
		}
		return msg
	}
}
