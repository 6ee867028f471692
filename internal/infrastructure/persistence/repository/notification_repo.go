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

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a notification attempt
func (r *NotificationRepository) Create(ctx context.Context, notification *entity.NotificationLog) error {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	if notification.Status == "" {
		notification.Status = entity.NotificationStatusPending
	}

	query := `
		INSERT INTO notifications (
			expense_id, recipient_id, recipient_email, kind,
			status, error_message, sent_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		notification.ExpenseID,
		notification.RecipientID,
		notification.RecipientEmail,
		notification.Kind,
		notification.Status,
		notification.ErrorMessage,
		notification.SentAt,
		notification.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("expense_id", notification.ExpenseID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	notification.ID = id
	return nil
}

// GetByExpenseID lists notification attempts for an expense
func (r *NotificationRepository) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.NotificationLog, error) {
	query := `
		SELECT id, expense_id, recipient_id, recipient_email, kind,
			status, error_message, sent_at, created_at
		FROM notifications
		WHERE expense_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get notifications", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var logs []*entity.NotificationLog
	for rows.Next() {
		var n entity.NotificationLog
		var sentAt sql.NullTime
		err := rows.Scan(
			&n.ID,
			&n.ExpenseID,
			&n.RecipientID,
			&n.RecipientEmail,
			&n.Kind,
			&n.Status,
			&n.ErrorMessage,
			&sentAt,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		logs = append(logs, &n)
	}

	return logs, rows.Err()
}

// UpdateStatus updates the notification status and error message
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id int64, status string, errorMsg string) error {
	query := `UPDATE notifications SET status = ?, error_message = ? WHERE id = ?`

	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, status, errorMsg, id); err != nil {
		r.logger.Error("Failed to update notification status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}

// MarkSent marks the notification as delivered
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET status = ?, sent_at = ?, error_message = '' WHERE id = ?`

	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, entity.NotificationStatusSent, time.Now(), id); err != nil {
		r.logger.Error("Failed to mark notification as sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
