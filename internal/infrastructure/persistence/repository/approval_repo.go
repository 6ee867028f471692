package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/infrastructure/persistence/sqlite"
)

// ApprovalRepository implements port.ApprovalRepository over the approvals table.
// Both ledgers share the table and are told apart by kind.
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an approval to its ledger
func (r *ApprovalRepository) Create(ctx context.Context, approval *entity.Approval) error {
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now()
	}

	query := `INSERT INTO approvals (expense_id, approver_id, kind, created_at) VALUES (?, ?, ?, ?)`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		approval.ExpenseID,
		approval.ApproverID,
		string(approval.Kind),
		approval.CreatedAt,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return port.ErrDuplicateApproval
		}
		r.logger.Error("Failed to create approval",
			zap.Int64("expense_id", approval.ExpenseID),
			zap.Int64("approver_id", approval.ApproverID),
			zap.Error(err))
		return fmt.Errorf("failed to create approval: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	approval.ID = id
	return nil
}

// GetByExpenseID returns one ledger of an expense in insertion order
func (r *ApprovalRepository) GetByExpenseID(ctx context.Context, expenseID int64, kind entity.LedgerKind) ([]*entity.Approval, error) {
	query := `
		SELECT id, expense_id, approver_id, kind, created_at
		FROM approvals
		WHERE expense_id = ? AND kind = ?
		ORDER BY id ASC
	`
	return r.query(ctx, query, expenseID, string(kind))
}

// GetAllByExpenseID returns both ledgers of an expense
func (r *ApprovalRepository) GetAllByExpenseID(ctx context.Context, expenseID int64) ([]*entity.Approval, error) {
	query := `
		SELECT id, expense_id, approver_id, kind, created_at
		FROM approvals
		WHERE expense_id = ?
		ORDER BY id ASC
	`
	return r.query(ctx, query, expenseID)
}

// CountByCompany returns the number of ledger entries per expense of a company
func (r *ApprovalRepository) CountByCompany(ctx context.Context, companyID int64, kind entity.LedgerKind) (map[int64]int, error) {
	query := `
		SELECT a.expense_id, COUNT(*)
		FROM approvals a
		JOIN expenses e ON e.id = a.expense_id
		WHERE e.company_id = ? AND a.kind = ?
		GROUP BY a.expense_id
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, companyID, string(kind))
	if err != nil {
		r.logger.Error("Failed to count approvals", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to count approvals: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var expenseID int64
		var n int
		if err := rows.Scan(&expenseID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan approval count: %w", err)
		}
		counts[expenseID] = n
	}
	return counts, rows.Err()
}

func (r *ApprovalRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Approval, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get approvals", zap.Error(err))
		return nil, fmt.Errorf("failed to get approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*entity.Approval
	for rows.Next() {
		var a entity.Approval
		var kind string
		if err := rows.Scan(&a.ID, &a.ExpenseID, &a.ApproverID, &kind, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		a.Kind = entity.LedgerKind(kind)
		approvals = append(approvals, &a)
	}

	return approvals, rows.Err()
}

var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
