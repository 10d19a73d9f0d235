package domain

import "time"

// NotificationCategory controls how a notification is presented.
type NotificationCategory string

const (
	NotificationInfo    NotificationCategory = "info"
	NotificationSuccess NotificationCategory = "success"
	NotificationWarning NotificationCategory = "warning"
)

// Notification is an in-system alert for a single recipient.
type Notification struct {
	ID          string
	RecipientID string
	Title       string
	Message     string
	Category    NotificationCategory
	IsRead      bool
	CreatedAt   time.Time
}
