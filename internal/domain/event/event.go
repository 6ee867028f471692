package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by producers and handlers
const (
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyTrigger        = "trigger"
	KeyNotification   = "notification"
	KeyReason         = "reason"
	KeyNudgeType      = "nudge_type"
	KeyRecipients     = "recipients"
)

// Event represents a domain event about one expense
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ExpenseID     int64                  `json:"expense_id"`
	CompanyID     int64                  `json:"company_id"`
	ActorID       int64                  `json:"actor_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, expenseID, companyID, actorID int64, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		ExpenseID:     expenseID,
		CompanyID:     companyID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// WithCorrelation returns a copy linked to an existing correlation chain
func (e *Event) WithCorrelation(correlationID string) *Event {
	cp := *e
	cp.CorrelationID = correlationID
	return &cp
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadIDs retrieves a list of user IDs from the payload
func (e *Event) GetPayloadIDs(key string) []int64 {
	if val, ok := e.Payload[key]; ok {
		if ids, ok := val.([]int64); ok {
			return ids
		}
	}
	return nil
}
