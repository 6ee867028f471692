package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseSubmitted    Type = "expense.submitted"
	TypeExpenseTransitioned Type = "expense.transitioned"
	TypeApprovalRecorded    Type = "expense.approval_recorded"
	TypeNudgeSent           Type = "expense.nudge_sent"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseSubmitted,
		TypeExpenseTransitioned,
		TypeApprovalRecorded,
		TypeNudgeSent:
		return true
	default:
		return false
	}
}
