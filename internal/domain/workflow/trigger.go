package workflow

// Trigger is a workflow action that can move an expense between states
type Trigger string

const (
	TriggerApprove           Trigger = "APPROVE"
	TriggerReject            Trigger = "REJECT"
	TriggerRequestWithdrawal Trigger = "REQUEST_WITHDRAWAL"
	TriggerApproveWithdrawal Trigger = "APPROVE_WITHDRAWAL"
	TriggerRejectWithdrawal  Trigger = "REJECT_WITHDRAWAL"
	TriggerConfirmReceipt    Trigger = "CONFIRM_RECEIPT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
