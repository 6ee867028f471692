package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/infrastructure/persistence/sqlite"
)

// NudgeRepository implements port.NudgeRepository
type NudgeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNudgeRepository creates a new nudge repository
func NewNudgeRepository(db *sql.DB, logger *zap.Logger) port.NudgeRepository {
	return &NudgeRepository{
		db:     db,
		logger: logger,
	}
}

// Create logs a sent nudge
func (r *NudgeRepository) Create(ctx context.Context, nudge *entity.NudgeRecord) error {
	query := `
		INSERT INTO nudges (expense_id, nudge_type, sent_by, recipient_count, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		nudge.ExpenseID,
		nudge.Type,
		nudge.SentBy,
		nudge.RecipientCount,
		nudge.SentAt,
	)
	if err != nil {
		r.logger.Error("Failed to create nudge record", zap.Int64("expense_id", nudge.ExpenseID), zap.Error(err))
		return fmt.Errorf("failed to create nudge: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	nudge.ID = id
	return nil
}

// Latest returns the most recent nudge of the given type
func (r *NudgeRepository) Latest(ctx context.Context, expenseID int64, nudgeType string) (*entity.NudgeRecord, error) {
	query := `
		SELECT id, expense_id, nudge_type, sent_by, recipient_count, sent_at
		FROM nudges
		WHERE expense_id = ? AND nudge_type = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	`

	var n entity.NudgeRecord
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, expenseID, nudgeType).Scan(
		&n.ID, &n.ExpenseID, &n.Type, &n.SentBy, &n.RecipientCount, &n.SentAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get last nudge", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get last nudge: %w", err)
	}
	return &n, nil
}

var _ port.NudgeRepository = (*NudgeRepository)(nil)
