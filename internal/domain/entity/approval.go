package entity

import "time"

// LedgerKind distinguishes the two approval ledgers
type LedgerKind string

const (
	LedgerApproval   LedgerKind = "APPROVAL"
	LedgerWithdrawal LedgerKind = "WITHDRAWAL"
)

// Approval is an immutable record of one founder approving one phase of an expense
type Approval struct {
	ID         int64      `json:"id"`
	ExpenseID  int64      `json:"expense_id"`
	ApproverID int64      `json:"approver_id"`
	Kind       LedgerKind `json:"kind"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ApproverIDs projects a ledger down to approver IDs
func ApproverIDs(ledger []*Approval) []int64 {
	ids := make([]int64, 0, len(ledger))
	for _, a := range ledger {
		ids = append(ids, a.ApproverID)
	}
	return ids
}
