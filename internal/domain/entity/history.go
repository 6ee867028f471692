package entity

import "time"

// Actions recorded in the expense history besides workflow triggers
const (
	ActionSubmit = "SUBMIT"
	ActionNudge  = "NUDGE"
)

// ExpenseHistory is the audit trail of an expense
type ExpenseHistory struct {
	ID             int64     `json:"id"`
	ExpenseID      int64     `json:"expense_id"`
	ActorID        int64     `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Action         string    `json:"action"`
	Detail         string    `json:"detail,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NudgeRecord is a reminder sent by an owner to pending approvers
type NudgeRecord struct {
	ID             int64     `json:"id"`
	ExpenseID      int64     `json:"expense_id"`
	Type           string    `json:"type"`
	SentBy         int64     `json:"sent_by"`
	RecipientCount int       `json:"recipient_count"`
	SentAt         time.Time `json:"sent_at"`
}
