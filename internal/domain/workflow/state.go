package workflow

// State is the status of an expense in the approval/withdrawal lifecycle
type State string

const (
	StatePendingApproval     State = "PENDING_APPROVAL"
	StateApproved            State = "APPROVED"
	StateRejected            State = "REJECTED"
	StateWithdrawalRequested State = "WITHDRAWAL_REQUESTED"
	StateWithdrawalApproved  State = "WITHDRAWAL_APPROVED"
	StateWithdrawalRejected  State = "WITHDRAWAL_REJECTED"
	StateReceived            State = "RECEIVED"
)

// IsTerminal returns true if no further transitions leave the state
func (s State) IsTerminal() bool {
	switch s {
	case StateRejected, StateWithdrawalRejected, StateReceived:
		return true
	}
	return false
}

// IsRejected returns true for both rejection variants
func (s State) IsRejected() bool {
	return s == StateRejected || s == StateWithdrawalRejected
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known expense status
func (s State) IsValid() bool {
	switch s {
	case StatePendingApproval, StateApproved, StateRejected,
		StateWithdrawalRequested, StateWithdrawalApproved, StateWithdrawalRejected,
		StateReceived:
		return true
	}
	return false
}

// AllStates lists every status in lifecycle order
func AllStates() []State {
	return []State{
		StatePendingApproval,
		StateApproved,
		StateRejected,
		StateWithdrawalRequested,
		StateWithdrawalApproved,
		StateWithdrawalRejected,
		StateReceived,
	}
}
