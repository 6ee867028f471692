package port

import (
	"context"
	"errors"
	"time"

	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

// ErrStatusConflict is returned when a conditional status update finds the
// expense in a different status than the caller observed.
var ErrStatusConflict = errors.New("expense status changed concurrently")

// ErrDuplicateApproval is returned when the ledger already holds an entry
// for the same (expense, approver, kind).
var ErrDuplicateApproval = errors.New("approval already recorded")

// ExpenseFilter narrows expense listings
type ExpenseFilter struct {
	CompanyID int64
	OwnerID   int64
	Status    workflow.State
	Limit     int
	Offset    int
}

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	List(ctx context.Context, filter ExpenseFilter) ([]*entity.Expense, error)

	// UpdateStatus moves an expense from one status to another.
	// Returns ErrStatusConflict when the stored status is not from.
	UpdateStatus(ctx context.Context, id int64, from, to workflow.State) error

	// SetRejection records who rejected the expense, when and why
	SetRejection(ctx context.Context, id int64, rejectedBy int64, reason string, at time.Time) error
}

// ApprovalRepository defines persistence operations for both approval ledgers
type ApprovalRepository interface {
	// Create appends to a ledger. Returns ErrDuplicateApproval on a repeat entry.
	Create(ctx context.Context, approval *entity.Approval) error
	GetByExpenseID(ctx context.Context, expenseID int64, kind entity.LedgerKind) ([]*entity.Approval, error)
	GetAllByExpenseID(ctx context.Context, expenseID int64) ([]*entity.Approval, error)
	CountByCompany(ctx context.Context, companyID int64, kind entity.LedgerKind) (map[int64]int, error)
}

// MemberRepository provides read access to company membership
type MemberRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Member, error)
	GetByCompanyID(ctx context.Context, companyID int64) ([]*entity.Member, error)
	GetFounders(ctx context.Context, companyID int64) ([]*entity.Member, error)
}

// CompanySettingsRepository defines persistence operations for CompanySettings
type CompanySettingsRepository interface {
	// Get returns the stored settings, or nil when the company has none
	Get(ctx context.Context, companyID int64) (*entity.CompanySettings, error)
	Upsert(ctx context.Context, settings *entity.CompanySettings) error
}

// NudgeRepository defines persistence operations for NudgeRecord
type NudgeRepository interface {
	Create(ctx context.Context, nudge *entity.NudgeRecord) error
	// Latest returns the most recent nudge of a type, or nil if never nudged
	Latest(ctx context.Context, expenseID int64, nudgeType string) (*entity.NudgeRecord, error)
}

// HistoryRepository defines persistence operations for ExpenseHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ExpenseHistory) error
	GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error)
}

// NotificationRepository defines persistence operations for NotificationLog
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.NotificationLog) error
	GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.NotificationLog, error)
	UpdateStatus(ctx context.Context, id int64, status string, errorMsg string) error
	MarkSent(ctx context.Context, id int64) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
