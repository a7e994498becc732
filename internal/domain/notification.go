package domain

import "time"

const (
	NotificationPending = "pending"
	NotificationSending = "sending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is an outbox entry written alongside a department status change.
type Notification struct {
	ID           int64
	ReportID     int64
	TrackingID   string
	Recipient    string
	Message      string
	Status       string
	AttemptCount int
	LastError    string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}
