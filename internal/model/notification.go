package model

import "time"

// NotificationKind identifies what produced a notification.
type NotificationKind string

const (
	NotificationItemCompleted    NotificationKind = "item_completed"
	NotificationSectionCompleted NotificationKind = "section_completed"
	NotificationMessage          NotificationKind = "message"
)

// Notification is a toast/inbox message surfaced to the user
// about activity on a task.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// TaskID links this notification to the originating task.
	TaskID string `json:"task_id" db:"task_id"`

	// Kind identifies the event that generated this notification.
	Kind NotificationKind `json:"kind" db:"kind"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
