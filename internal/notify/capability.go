// Package notify mirrors the pinned task into a single persistent host
// notification.
package notify

import (
	"context"

	"github.com/nhle/checklist/internal/model"
)

// Notification is what the bridge asks the host to show.
type Notification = model.Notification

// Action is an inbound notification interaction.
type Action = model.NotificationAction

// DefaultActionID is used when the host reports an action without an id.
const DefaultActionID = "tap"

// Capability is the host's notification facility.
type Capability interface {
	// RequestPermission asks the user for permission to notify.
	RequestPermission(ctx context.Context) (bool, error)

	// Schedule shows n, replacing any notification with the same id.
	Schedule(ctx context.Context, n Notification) error

	// Cancel removes the notification with the given id.
	Cancel(ctx context.Context, id string) error

	// OnAction registers fn to receive notification interactions.
	OnAction(fn func(Action))
}

// Noop is the capability of a host without notifications. It never
// grants permission.
type Noop struct{}

func (Noop) RequestPermission(context.Context) (bool, error) { return false, nil }
func (Noop) Schedule(context.Context, Notification) error    { return nil }
func (Noop) Cancel(context.Context, string) error            { return nil }
func (Noop) OnAction(func(Action))                           {}
