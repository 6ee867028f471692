package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

// Expense is a pre-incorporation business expense paid by a founder
type Expense struct {
	ID              int64          `json:"id"`
	CompanyID       int64          `json:"company_id"`
	OwnerID         int64          `json:"owner_id"`
	AmountCents     int64          `json:"amount_cents"`
	Category        string         `json:"category"`
	Description     string         `json:"description"`
	ExpenseDate     time.Time      `json:"expense_date"`
	ReceiptRef      string         `json:"receipt_ref,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Status          workflow.State `json:"status"`
	RejectedBy      *int64         `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time     `json:"rejected_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Amount returns the amount as a two-decimal fixed-point value
func (e *Expense) Amount() decimal.Decimal {
	return decimal.New(e.AmountCents, -2)
}

// Subject returns the view of the expense used by workflow decisions
func (e *Expense) Subject() workflow.Subject {
	return workflow.Subject{
		ExpenseID: e.ID,
		OwnerID:   e.OwnerID,
		Status:    e.Status,
	}
}

// CentsFromAmount converts a validated amount to integer cents
func CentsFromAmount(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
