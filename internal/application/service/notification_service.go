package service

import (
	"context"
	"fmt"

	"github.com/founderstab/founders-tab/internal/application/dispatcher"
	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/event"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
	"github.com/founderstab/founders-tab/pkg/utils"
)

// NotificationService e-mails expense owners about decisive transitions.
// Delivery is best-effort: failures are logged and recorded, never propagated
// to the action that caused them.
type NotificationService interface {
	// Register subscribes the service to transition events
	Register(d dispatcher.Dispatcher)

	// HandleTransition sends the owner notification carried by evt, if any
	HandleTransition(ctx context.Context, evt *event.Event) error

	// Log returns the notification attempts for an expense
	Log(ctx context.Context, userID, expenseID int64) ([]*entity.NotificationLog, error)
}

type notificationServiceImpl struct {
	expenseRepo      port.ExpenseRepository
	memberRepo       port.MemberRepository
	notificationRepo port.NotificationRepository
	mailer           port.Mailer
	metrics          port.Metrics
	logger           Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	expenseRepo port.ExpenseRepository,
	memberRepo port.MemberRepository,
	notificationRepo port.NotificationRepository,
	mailer port.Mailer,
	metrics port.Metrics,
	logger Logger,
) NotificationService {
	if metrics == nil {
		metrics = port.NoopMetrics{}
	}
	return &notificationServiceImpl{
		expenseRepo:      expenseRepo,
		memberRepo:       memberRepo,
		notificationRepo: notificationRepo,
		mailer:           mailer,
		metrics:          metrics,
		logger:           logger,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeExpenseTransitioned, "owner-notification",
		dispatcher.Filter(dispatcher.HasPayload(event.KeyNotification), s.HandleTransition))
}

func (s *notificationServiceImpl) HandleTransition(ctx context.Context, evt *event.Event) error {
	kind := workflow.Notification(evt.GetPayloadString(event.KeyNotification))
	if kind == workflow.NotifyNone {
		return nil
	}

	expense, err := s.expenseRepo.GetByID(ctx, evt.ExpenseID)
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}
	if expense == nil {
		return fmt.Errorf("load expense %d: %w", evt.ExpenseID, ErrExpenseNotFound)
	}

	owner, err := loadMember(ctx, s.memberRepo, expense.OwnerID)
	if err != nil {
		return fmt.Errorf("load owner: %w", err)
	}

	actorName := "A founder"
	if actor, err := s.memberRepo.GetByID(ctx, evt.ActorID); err == nil && actor != nil {
		actorName = actor.Name
	}

	msg, err := ownerMessage(kind, expense, owner, actorName, evt.GetPayloadString(event.KeyReason))
	if err != nil {
		return err
	}

	record := &entity.NotificationLog{
		ExpenseID:      expense.ID,
		RecipientID:    owner.ID,
		RecipientEmail: owner.Email,
		Kind:           string(kind),
		Status:         entity.NotificationStatusPending,
	}
	if err := s.notificationRepo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to record notification", "error", err, "expense_id", expense.ID)
		return fmt.Errorf("record notification: %w", err)
	}

	if err := s.deliver(ctx, msg); err != nil {
		s.metrics.RecordNotification(string(kind), entity.NotificationStatusFailed)
		s.logger.Error("Owner notification failed",
			"error", err,
			"expense_id", expense.ID,
			"kind", kind,
			"recipient_id", owner.ID,
		)
		if uerr := s.notificationRepo.UpdateStatus(ctx, record.ID, entity.NotificationStatusFailed, err.Error()); uerr != nil {
			s.logger.Error("Failed to update notification status", "error", uerr, "notification_id", record.ID)
		}
		return err
	}

	if err := s.notificationRepo.MarkSent(ctx, record.ID); err != nil {
		s.logger.Error("Failed to mark notification sent", "error", err, "notification_id", record.ID)
	}
	s.metrics.RecordNotification(string(kind), entity.NotificationStatusSent)
	s.logger.Info("Owner notified", "expense_id", expense.ID, "kind", kind, "recipient_id", owner.ID)
	return nil
}

func (s *notificationServiceImpl) deliver(ctx context.Context, msg port.Message) error {
	if err := utils.ValidateEmail(msg.To); err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

func (s *notificationServiceImpl) Log(ctx context.Context, userID, expenseID int64) ([]*entity.NotificationLog, error) {
	viewer, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return nil, err
	}
	if _, err := loadExpense(ctx, s.expenseRepo, viewer.CompanyID, expenseID); err != nil {
		return nil, err
	}

	logs, err := s.notificationRepo.GetByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*entity.NotificationLog{}
	}
	return logs, nil
}
