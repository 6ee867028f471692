package entity

import "time"

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// NotificationLog records one attempt to e-mail a user about an expense
type NotificationLog struct {
	ID             int64      `json:"id"`
	ExpenseID      int64      `json:"expense_id"`
	RecipientID    int64      `json:"recipient_id"`
	RecipientEmail string     `json:"recipient_email"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
