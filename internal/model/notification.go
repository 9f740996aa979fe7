package model

import "time"

// Severity classifies a notification for display purposes.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a transient, user-visible outcome of a mailbox action.
// Every mutating action produces exactly one of these, success or failure.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Severity controls how the notification is rendered.
	Severity Severity `json:"severity"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
