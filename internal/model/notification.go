package model

// Notification is the content of the single persistent notification that
// mirrors a pinned task.
type Notification struct {
	// ID identifies the notification; it is the pinned task's id.
	ID string `json:"id"`

	// Title is the headline shown by the host.
	Title string `json:"title"`

	// Body is the progress and countdown line.
	Body string `json:"body"`

	// Persistent asks the host to keep the notification until cancelled.
	Persistent bool `json:"persistent"`
}

// NotificationAction is an inbound event from the host when the user
// interacts with a notification.
type NotificationAction struct {
	TaskID   string `json:"task_id"`
	ActionID string `json:"action_id"`
}
