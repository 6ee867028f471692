package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
	"github.com/founderstab/founders-tab/internal/infrastructure/persistence/sqlite"
)

const expenseColumns = `id, company_id, owner_id, amount_cents, category, description,
	expense_date, receipt_ref, notes, status, rejected_by, rejected_at,
	rejection_reason, created_at, updated_at`

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an expense and sets its ID
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	now := time.Now()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = expense.CreatedAt

	query := `
		INSERT INTO expenses (
			company_id, owner_id, amount_cents, category, description,
			expense_date, receipt_ref, notes, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		expense.CompanyID,
		expense.OwnerID,
		expense.AmountCents,
		expense.Category,
		expense.Description,
		expense.ExpenseDate,
		expense.ReceiptRef,
		expense.Notes,
		string(expense.Status),
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Int64("owner_id", expense.OwnerID), zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByID retrieves an expense by ID, or nil when it does not exist
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := scanExpense(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// List returns expenses matching the filter, newest first
func (r *ExpenseRepository) List(ctx context.Context, filter port.ExpenseFilter) ([]*entity.Expense, error) {
	var (
		conditions = []string{"company_id = ?"}
		args       = []interface{}{filter.CompanyID}
	)
	if filter.OwnerID != 0 {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY expense_date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Int64("company_id", filter.CompanyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

// UpdateStatus moves the expense from one status to another atomically
func (r *ExpenseRepository) UpdateStatus(ctx context.Context, id int64, from, to workflow.State) error {
	query := `UPDATE expenses SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, string(to), time.Now(), id, string(from))
	if err != nil {
		r.logger.Error("Failed to update expense status",
			zap.Int64("id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return fmt.Errorf("failed to update expense status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return port.ErrStatusConflict
	}
	return nil
}

// SetRejection stores rejection metadata
func (r *ExpenseRepository) SetRejection(ctx context.Context, id int64, rejectedBy int64, reason string, at time.Time) error {
	query := `
		UPDATE expenses
		SET rejected_by = ?, rejected_at = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, rejectedBy, at, reason, at, id)
	if err != nil {
		r.logger.Error("Failed to set rejection", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set rejection: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var (
		expense    entity.Expense
		status     string
		rejectedBy sql.NullInt64
		rejectedAt sql.NullTime
	)

	err := row.Scan(
		&expense.ID,
		&expense.CompanyID,
		&expense.OwnerID,
		&expense.AmountCents,
		&expense.Category,
		&expense.Description,
		&expense.ExpenseDate,
		&expense.ReceiptRef,
		&expense.Notes,
		&status,
		&rejectedBy,
		&rejectedAt,
		&expense.RejectionReason,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	expense.Status = workflow.State(status)
	if rejectedBy.Valid {
		expense.RejectedBy = &rejectedBy.Int64
	}
	if rejectedAt.Valid {
		expense.RejectedAt = &rejectedAt.Time
	}
	return &expense, nil
}

var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
