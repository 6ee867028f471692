package workflow

var expenseLifecycle Lifecycle

func init() {
	expenseLifecycle = buildExpenseLifecycle()
}

// ExpenseLifecycle returns the shared transition table for expenses
func ExpenseLifecycle() Lifecycle {
	return expenseLifecycle
}

func fullyApproved(t Tally) bool {
	return t.Complete()
}

func buildExpenseLifecycle() Lifecycle {
	builder := NewBuilder()

	// An approval either completes the ledger or leaves the expense pending
	builder.Configure(StatePendingApproval).
		PermitIf(TriggerApprove, StateApproved, fullyApproved).
		Permit(TriggerApprove, StatePendingApproval).
		Permit(TriggerReject, StateRejected)

	// With nobody left to ask, a withdrawal request is approved on the spot
	builder.Configure(StateApproved).
		PermitIf(TriggerRequestWithdrawal, StateWithdrawalApproved, fullyApproved).
		Permit(TriggerRequestWithdrawal, StateWithdrawalRequested)

	builder.Configure(StateWithdrawalRequested).
		PermitIf(TriggerApproveWithdrawal, StateWithdrawalApproved, fullyApproved).
		Permit(TriggerApproveWithdrawal, StateWithdrawalRequested).
		Permit(TriggerRejectWithdrawal, StateWithdrawalRejected)

	builder.Configure(StateWithdrawalApproved).
		Permit(TriggerConfirmReceipt, StateReceived)

	// REJECTED, WITHDRAWAL_REJECTED and RECEIVED have no outgoing transitions

	return builder.Build()
}
