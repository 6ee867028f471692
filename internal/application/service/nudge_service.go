package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/founderstab/founders-tab/internal/application/dispatcher"
	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/event"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

// NudgeResult reports who was reminded
type NudgeResult struct {
	Type       workflow.NudgeType `json:"type"`
	Recipients []int64            `json:"recipients"`
	Delivered  int                `json:"delivered"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`
}

// NudgeService lets an owner remind founders who have not yet approved
type NudgeService interface {
	Nudge(ctx context.Context, userID, expenseID int64, nudgeType string) (*NudgeResult, error)
}

type nudgeServiceImpl struct {
	expenseRepo      port.ExpenseRepository
	approvalRepo     port.ApprovalRepository
	memberRepo       port.MemberRepository
	settingsRepo     port.CompanySettingsRepository
	nudgeRepo        port.NudgeRepository
	historyRepo      port.HistoryRepository
	notificationRepo port.NotificationRepository
	mailer           port.Mailer
	dispatcher       dispatcher.Dispatcher
	metrics          port.Metrics
	logger           Logger
	now              func() time.Time
}

// NudgeDeps groups the collaborators of the nudge service
type NudgeDeps struct {
	Expenses      port.ExpenseRepository
	Approvals     port.ApprovalRepository
	Members       port.MemberRepository
	Settings      port.CompanySettingsRepository
	Nudges        port.NudgeRepository
	History       port.HistoryRepository
	Notifications port.NotificationRepository
	Mailer        port.Mailer
	Dispatcher    dispatcher.Dispatcher
	Metrics       port.Metrics
	Logger        Logger
}

// NewNudgeService creates a new NudgeService
func NewNudgeService(deps NudgeDeps) NudgeService {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = port.NoopMetrics{}
	}
	return &nudgeServiceImpl{
		expenseRepo:      deps.Expenses,
		approvalRepo:     deps.Approvals,
		memberRepo:       deps.Members,
		settingsRepo:     deps.Settings,
		nudgeRepo:        deps.Nudges,
		historyRepo:      deps.History,
		notificationRepo: deps.Notifications,
		mailer:           deps.Mailer,
		dispatcher:       deps.Dispatcher,
		metrics:          metrics,
		logger:           deps.Logger,
		now:              time.Now,
	}
}

// Nudge e-mails every pending approver once. The nudge is logged, and the
// cooldown starts, only when at least one e-mail was delivered.
func (s *nudgeServiceImpl) Nudge(ctx context.Context, userID, expenseID int64, rawType string) (*NudgeResult, error) {
	nudgeType := workflow.NudgeType(strings.ToUpper(strings.TrimSpace(rawType)))
	if !nudgeType.IsValid() {
		return nil, invalid("type", fmt.Sprintf("unknown nudge type %q", rawType))
	}

	owner, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return nil, err
	}
	expense, err := loadExpense(ctx, s.expenseRepo, owner.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}

	cooldown, err := s.cooldownHours(ctx, expense.CompanyID)
	if err != nil {
		return nil, err
	}
	last, err := s.nudgeRepo.Latest(ctx, expense.ID, string(nudgeType))
	if err != nil {
		return nil, fmt.Errorf("load last nudge: %w", err)
	}
	var lastAt *time.Time
	if last != nil {
		lastAt = &last.SentAt
	}

	now := s.now()
	decision := workflow.Nudge(expense.Subject(), owner.Actor(), nudgeType, lastAt, now, cooldown)
	if !decision.Allowed {
		s.metrics.RecordRefusal("NUDGE_"+string(nudgeType), string(decision.Reason))
		s.logger.Info("Nudge refused",
			"expense_id", expense.ID,
			"user_id", userID,
			"type", nudgeType,
			"reason", decision.Reason,
			"retry_after", decision.RetryAfter,
		)
		return nil, decision.Err()
	}

	recipients, err := s.pendingApprovers(ctx, expense, nudgeType)
	if err != nil {
		return nil, err
	}

	result := &NudgeResult{Type: nudgeType, Recipients: make([]int64, 0, len(recipients))}
	for _, approver := range recipients {
		result.Recipients = append(result.Recipients, approver.ID)
		if s.remind(ctx, nudgeType, expense, owner, approver) {
			result.Delivered++
		}
	}

	if result.Delivered == 0 {
		s.logger.Info("Nudge delivered to nobody", "expense_id", expense.ID, "type", nudgeType, "recipients", len(recipients))
		return result, nil
	}

	if err := s.record(ctx, expense, owner, nudgeType, result, now); err != nil {
		s.logger.Error("Failed to record nudge", "error", err, "expense_id", expense.ID)
		return nil, err
	}
	result.SentAt = &now

	s.metrics.RecordNudge(string(nudgeType))
	s.logger.Info("Nudge sent", "expense_id", expense.ID, "type", nudgeType, "delivered", result.Delivered)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeNudgeSent, expense.ID, expense.CompanyID, owner.ID,
			map[string]interface{}{
				event.KeyNudgeType:  string(nudgeType),
				event.KeyRecipients: result.Recipients,
			}))
	}
	return result, nil
}

func (s *nudgeServiceImpl) cooldownHours(ctx context.Context, companyID int64) (int, error) {
	settings, err := s.settingsRepo.Get(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("load company settings: %w", err)
	}
	if settings == nil {
		return 0, nil
	}
	return settings.NudgeCooldownHours, nil
}

func (s *nudgeServiceImpl) pendingApprovers(ctx context.Context, expense *entity.Expense, nudgeType workflow.NudgeType) ([]*entity.Member, error) {
	kind := entity.LedgerApproval
	if nudgeType == workflow.NudgeWithdrawal {
		kind = entity.LedgerWithdrawal
	}

	ledger, err := s.approvalRepo.GetByExpenseID(ctx, expense.ID, kind)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	founders, err := s.memberRepo.GetFounders(ctx, expense.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load founders: %w", err)
	}

	ids := make([]int64, 0, len(founders))
	byID := make(map[int64]*entity.Member, len(founders))
	for _, f := range founders {
		ids = append(ids, f.ID)
		byID[f.ID] = f
	}

	var pending []*entity.Member
	for _, id := range workflow.PendingApprovers(expense.OwnerID, entity.ApproverIDs(ledger), ids) {
		pending = append(pending, byID[id])
	}
	return pending, nil
}

// remind sends one reminder and records the attempt. It reports delivery.
func (s *nudgeServiceImpl) remind(ctx context.Context, nudgeType workflow.NudgeType, expense *entity.Expense, owner, approver *entity.Member) bool {
	record := &entity.NotificationLog{
		ExpenseID:      expense.ID,
		RecipientID:    approver.ID,
		RecipientEmail: approver.Email,
		Kind:           "NUDGE_" + string(nudgeType),
		Status:         entity.NotificationStatusSent,
	}

	err := s.mailer.Send(ctx, nudgeMessage(nudgeType, expense, owner, approver))
	if err != nil {
		record.Status = entity.NotificationStatusFailed
		record.ErrorMessage = err.Error()
		s.logger.Error("Nudge e-mail failed", "error", err, "expense_id", expense.ID, "recipient_id", approver.ID)
	} else {
		sentAt := s.now()
		record.SentAt = &sentAt
	}
	s.metrics.RecordNotification(record.Kind, record.Status)

	if cerr := s.notificationRepo.Create(ctx, record); cerr != nil {
		s.logger.Error("Failed to record nudge e-mail", "error", cerr, "expense_id", expense.ID)
	}
	return err == nil
}

func (s *nudgeServiceImpl) record(ctx context.Context, expense *entity.Expense, owner *entity.Member, nudgeType workflow.NudgeType, result *NudgeResult, now time.Time) error {
	if err := s.nudgeRepo.Create(ctx, &entity.NudgeRecord{
		ExpenseID:      expense.ID,
		Type:           string(nudgeType),
		SentBy:         owner.ID,
		RecipientCount: result.Delivered,
		SentAt:         now,
	}); err != nil {
		return err
	}

	err := s.historyRepo.Create(ctx, &entity.ExpenseHistory{
		ExpenseID:      expense.ID,
		ActorID:        owner.ID,
		PreviousStatus: expense.Status.String(),
		NewStatus:      expense.Status.String(),
		Action:         entity.ActionNudge,
		Detail:         fmt.Sprintf("%s reminder to %d of %d approvers", strings.ToLower(string(nudgeType)), result.Delivered, len(result.Recipients)),
		Timestamp:      now,
	})
	if err != nil {
		// the nudge row already starts the cooldown
		s.logger.Error("Failed to record nudge history", "error", err, "expense_id", expense.ID)
	}
	return nil
}
