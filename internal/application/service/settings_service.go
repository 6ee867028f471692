package service

import (
	"context"
	"fmt"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

// SettingsService reads and updates per-company workflow settings
type SettingsService interface {
	Get(ctx context.Context, userID int64) (*entity.CompanySettings, error)
	Update(ctx context.Context, userID int64, nudgeCooldownHours int) (*entity.CompanySettings, error)
}

type settingsServiceImpl struct {
	settingsRepo port.CompanySettingsRepository
	memberRepo   port.MemberRepository
	logger       Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(settingsRepo port.CompanySettingsRepository, memberRepo port.MemberRepository, logger Logger) SettingsService {
	return &settingsServiceImpl{
		settingsRepo: settingsRepo,
		memberRepo:   memberRepo,
		logger:       logger,
	}
}

// Get returns the caller's company settings, with defaults when none were saved
func (s *settingsServiceImpl) Get(ctx context.Context, userID int64) (*entity.CompanySettings, error) {
	member, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settingsRepo.Get(ctx, member.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load company settings: %w", err)
	}
	if settings == nil {
		settings = &entity.CompanySettings{CompanyID: member.CompanyID}
	}
	return settings, nil
}

// Update changes the nudge cooldown. Founders only.
func (s *settingsServiceImpl) Update(ctx context.Context, userID int64, nudgeCooldownHours int) (*entity.CompanySettings, error) {
	member, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsFounder() {
		return nil, &workflow.Violation{Kind: workflow.KindNotFounder}
	}
	if nudgeCooldownHours < 0 || nudgeCooldownHours > entity.MaxNudgeCooldownHour {
		return nil, invalid("nudge_cooldown_hours", fmt.Sprintf("must be between 0 and %d", entity.MaxNudgeCooldownHour))
	}

	settings := &entity.CompanySettings{
		CompanyID:          member.CompanyID,
		NudgeCooldownHours: nudgeCooldownHours,
	}
	if err := s.settingsRepo.Upsert(ctx, settings); err != nil {
		s.logger.Error("Failed to save company settings", "error", err, "company_id", member.CompanyID)
		return nil, fmt.Errorf("save company settings: %w", err)
	}

	s.logger.Info("Company settings updated",
		"company_id", member.CompanyID,
		"user_id", userID,
		"nudge_cooldown_hours", nudgeCooldownHours,
	)
	return settings, nil
}
