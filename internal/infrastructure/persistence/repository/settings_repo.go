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

// CompanySettingsRepository implements port.CompanySettingsRepository
type CompanySettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanySettingsRepository creates a new settings repository
func NewCompanySettingsRepository(db *sql.DB, logger *zap.Logger) port.CompanySettingsRepository {
	return &CompanySettingsRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the company's settings, or nil when none are stored
func (r *CompanySettingsRepository) Get(ctx context.Context, companyID int64) (*entity.CompanySettings, error) {
	query := `SELECT company_id, nudge_cooldown_hours FROM company_settings WHERE company_id = ?`

	var s entity.CompanySettings
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, companyID).Scan(&s.CompanyID, &s.NudgeCooldownHours)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get company settings", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get company settings: %w", err)
	}
	return &s, nil
}

// Upsert creates or replaces the company's settings
func (r *CompanySettingsRepository) Upsert(ctx context.Context, settings *entity.CompanySettings) error {
	query := `
		INSERT INTO company_settings (company_id, nudge_cooldown_hours, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(company_id) DO UPDATE SET
			nudge_cooldown_hours = excluded.nudge_cooldown_hours,
			updated_at = excluded.updated_at
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		settings.CompanyID,
		settings.NudgeCooldownHours,
		time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert company settings", zap.Int64("company_id", settings.CompanyID), zap.Error(err))
		return fmt.Errorf("failed to upsert company settings: %w", err)
	}
	return nil
}

var _ port.CompanySettingsRepository = (*CompanySettingsRepository)(nil)
