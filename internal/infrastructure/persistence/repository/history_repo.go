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

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ExpenseHistory) error {
	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now()
	}

	query := `
		INSERT INTO expense_history (
			expense_id, actor_id, previous_status, new_status,
			action, detail, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		history.ExpenseID,
		history.ActorID,
		history.PreviousStatus,
		history.NewStatus,
		history.Action,
		history.Detail,
		history.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Int64("expense_id", history.ExpenseID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByExpenseID retrieves the audit trail of an expense, oldest first
func (r *HistoryRepository) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error) {
	query := `
		SELECT id, expense_id, actor_id, previous_status, new_status,
			action, detail, timestamp
		FROM expense_history
		WHERE expense_id = ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get history by expense ID", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.ExpenseHistory
	for rows.Next() {
		var record entity.ExpenseHistory
		err := rows.Scan(
			&record.ID,
			&record.ExpenseID,
			&record.ActorID,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.Action,
			&record.Detail,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
