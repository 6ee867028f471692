package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/founderstab/founders-tab/internal/application/dispatcher"
	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/event"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

// TransitionResult is the outcome of an accepted workflow action
type TransitionResult struct {
	Expense  *entity.Expense   `json:"expense"`
	Decision workflow.Decision `json:"-"`
}

// WorkflowService performs approval and withdrawal actions on expenses.
// Refused actions return a *workflow.Violation.
type WorkflowService interface {
	Approve(ctx context.Context, userID, expenseID int64) (*TransitionResult, error)
	Reject(ctx context.Context, userID, expenseID int64, reason string) (*TransitionResult, error)
	RequestWithdrawal(ctx context.Context, userID, expenseID int64) (*TransitionResult, error)
	ApproveWithdrawal(ctx context.Context, userID, expenseID int64) (*TransitionResult, error)
	RejectWithdrawal(ctx context.Context, userID, expenseID int64, reason string) (*TransitionResult, error)
	ConfirmReceipt(ctx context.Context, userID, expenseID int64) (*TransitionResult, error)
}

type workflowServiceImpl struct {
	expenseRepo  port.ExpenseRepository
	approvalRepo port.ApprovalRepository
	memberRepo   port.MemberRepository
	historyRepo  port.HistoryRepository
	txManager    port.TransactionManager
	dispatcher   dispatcher.Dispatcher
	metrics      port.Metrics
	logger       Logger
	now          func() time.Time
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	expenseRepo port.ExpenseRepository,
	approvalRepo port.ApprovalRepository,
	memberRepo port.MemberRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	disp dispatcher.Dispatcher,
	metrics port.Metrics,
	logger Logger,
) WorkflowService {
	if metrics == nil {
		metrics = port.NoopMetrics{}
	}
	return &workflowServiceImpl{
		expenseRepo:  expenseRepo,
		approvalRepo: approvalRepo,
		memberRepo:   memberRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		dispatcher:   disp,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// snapshot is everything a decision function needs, read inside the transaction
type snapshot struct {
	actor    *entity.Member
	expense  *entity.Expense
	founders []int64
	ledger   []int64
}

type action struct {
	trigger workflow.Trigger
	ledger  entity.LedgerKind // empty when the action does not read a ledger
	reason  string
	decide  func(s *snapshot) workflow.Decision
}

func (s *workflowServiceImpl) Approve(ctx context.Context, userID, expenseID int64) (*TransitionResult, error) {
	return s.perform(ctx, userID, expenseID, action{
		trigger: workflow.TriggerApprove,
		ledger:  entity.LedgerApproval,
		decide: func(snap *snapshot) workflow.Decision {
			return workflow.Approve(snap.expense.Subject(), snap.actor.Actor(), snap.ledger, snap.founders)
		},
	})
}

func (s *workflowServiceImpl) Reject(ctx context.Context, userID, expenseID int64, reason string) (*TransitionResult, error) {
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	return s.perform(ctx, userID, expenseID, action{
		trigger: workflow.TriggerReject,
		reason:  reason,
		decide: func(snap *snapshot) workflow.Decision {
			return workflow.Reject(snap.expense.Subject(), snap.actor.Actor(), reason)
		},
	})
}

func (s *workflowServiceImpl) RequestWithdrawal(ctx context.Context, userID, expenseID int64) (*TransitionResult, error) {
	return s.perform(ctx, userID, expenseID, action{
		trigger: workflow.TriggerRequestWithdrawal,
		decide: func(snap *snapshot) workflow.Decision {
			eligible := workflow.EligibleApprovers(snap.expense.OwnerID, snap.founders)
			return workflow.RequestWithdrawal(snap.expense.Subject(), snap.actor.Actor(), len(eligible))
		},
	})
}

func (s *workflowServiceImpl) ApproveWithdrawal(ctx context.Context, userID, expenseID int64) (*TransitionResult, error) {
	return s.perform(ctx, userID, expenseID, action{
		trigger: workflow.TriggerApproveWithdrawal,
		ledger:  entity.LedgerWithdrawal,
		decide: func(snap *snapshot) workflow.Decision {
			return workflow.ApproveWithdrawal(snap.expense.Subject(), snap.actor.Actor(), snap.ledger, snap.founders)
		},
	})
}

func (s *workflowServiceImpl) RejectWithdrawal(ctx context.Context, userID, expenseID int64, reason string) (*TransitionResult, error) {
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	return s.perform(ctx, userID, expenseID, action{
		trigger: workflow.TriggerRejectWithdrawal,
		reason:  reason,
		decide: func(snap *snapshot) workflow.Decision {
			return workflow.RejectWithdrawal(snap.expense.Subject(), snap.actor.Actor(), reason)
		},
	})
}

func (s *workflowServiceImpl) ConfirmReceipt(ctx context.Context, userID, expenseID int64) (*TransitionResult, error) {
	return s.perform(ctx, userID, expenseID, action{
		trigger: workflow.TriggerConfirmReceipt,
		decide: func(snap *snapshot) workflow.Decision {
			return workflow.ConfirmReceipt(snap.expense.Subject(), snap.actor.Actor())
		},
	})
}

// normalizeReason trims the reason. A blank reason is left to the decision
// function so it is reported in rule order.
func normalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > entity.MaxReasonLength {
		return "", invalid("reason", "reason is too long")
	}
	return reason, nil
}

// perform loads a snapshot, decides and persists in one transaction, then
// records metrics and emits the event once committed.
func (s *workflowServiceImpl) perform(ctx context.Context, userID, expenseID int64, act action) (*TransitionResult, error) {
	var (
		snap     snapshot
		decision workflow.Decision
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.loadSnapshot(txCtx, userID, expenseID, act.ledger, &snap); err != nil {
			return err
		}

		decision = act.decide(&snap)
		if !decision.Allowed {
			return decision.Err()
		}

		return s.persist(txCtx, &snap, act, decision)
	})

	var violation *workflow.Violation
	switch {
	case errors.As(err, &violation):
		s.metrics.RecordRefusal(act.trigger.String(), string(violation.Kind))
		s.logger.Info("Workflow action refused",
			"trigger", act.trigger,
			"expense_id", expenseID,
			"user_id", userID,
			"reason", violation.Kind,
		)
		return nil, err
	case errors.Is(err, ErrExpenseNotFound), errors.Is(err, ErrMemberNotFound):
		return nil, err
	case err != nil:
		s.logger.Error("Workflow action failed",
			"trigger", act.trigger,
			"expense_id", expenseID,
			"user_id", userID,
			"error", err,
		)
		return nil, err
	}

	s.metrics.RecordTransition(act.trigger.String(), decision.PreviousStatus.String(), decision.NextStatus.String())
	s.logger.Info("Workflow action applied",
		"trigger", act.trigger,
		"expense_id", snap.expense.ID,
		"user_id", userID,
		"from", decision.PreviousStatus,
		"to", decision.NextStatus,
		"approvals", decision.Tally.Approvals,
		"required", decision.Tally.Required,
	)
	s.emit(ctx, &snap, act, decision)

	return &TransitionResult{Expense: snap.expense, Decision: decision}, nil
}

func (s *workflowServiceImpl) loadSnapshot(ctx context.Context, userID, expenseID int64, ledger entity.LedgerKind, snap *snapshot) error {
	actor, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return err
	}
	expense, err := loadExpense(ctx, s.expenseRepo, actor.CompanyID, expenseID)
	if err != nil {
		return err
	}
	founders, err := founderIDs(ctx, s.memberRepo, expense.CompanyID)
	if err != nil {
		return err
	}

	snap.actor = actor
	snap.expense = expense
	snap.founders = founders

	if ledger != "" {
		entries, err := s.approvalRepo.GetByExpenseID(ctx, expense.ID, ledger)
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
		snap.ledger = entity.ApproverIDs(entries)
	}
	return nil
}

func (s *workflowServiceImpl) persist(ctx context.Context, snap *snapshot, act action, decision workflow.Decision) error {
	now := s.now()
	expense := snap.expense

	if decision.AppendLedger {
		approval := &entity.Approval{
			ExpenseID:  expense.ID,
			ApproverID: snap.actor.ID,
			Kind:       act.ledger,
			CreatedAt:  now,
		}
		if err := s.approvalRepo.Create(ctx, approval); err != nil {
			if errors.Is(err, port.ErrDuplicateApproval) {
				return &workflow.Violation{Kind: workflow.KindAlreadyApproved}
			}
			return fmt.Errorf("append ledger: %w", err)
		}
	}

	if decision.Transitioned() {
		if err := s.expenseRepo.UpdateStatus(ctx, expense.ID, decision.PreviousStatus, decision.NextStatus); err != nil {
			if errors.Is(err, port.ErrStatusConflict) {
				return &workflow.Violation{Kind: workflow.KindWrongState, Status: decision.PreviousStatus}
			}
			return fmt.Errorf("update status: %w", err)
		}
		expense.Status = decision.NextStatus
		expense.UpdatedAt = now
	}

	if decision.NextStatus.IsRejected() && decision.Transitioned() {
		if err := s.expenseRepo.SetRejection(ctx, expense.ID, snap.actor.ID, act.reason, now); err != nil {
			return fmt.Errorf("set rejection: %w", err)
		}
		rejectedBy := snap.actor.ID
		expense.RejectedBy = &rejectedBy
		expense.RejectedAt = &now
		expense.RejectionReason = act.reason
	}

	history := &entity.ExpenseHistory{
		ExpenseID:      expense.ID,
		ActorID:        snap.actor.ID,
		PreviousStatus: decision.PreviousStatus.String(),
		NewStatus:      decision.NextStatus.String(),
		Action:         act.trigger.String(),
		Detail:         historyDetail(act, decision),
		Timestamp:      now,
	}
	if err := s.historyRepo.Create(ctx, history); err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}

func historyDetail(act action, decision workflow.Decision) string {
	switch {
	case act.reason != "":
		return act.reason
	case decision.AutoApproved:
		return "auto-approved: no other founders"
	case decision.AppendLedger:
		return fmt.Sprintf("%d of %d approvals", decision.Tally.Approvals, decision.Tally.Required)
	}
	return ""
}

func (s *workflowServiceImpl) emit(ctx context.Context, snap *snapshot, act action, decision workflow.Decision) {
	if s.dispatcher == nil {
		return
	}

	eventType := event.TypeExpenseTransitioned
	if !decision.Transitioned() {
		eventType = event.TypeApprovalRecorded
	}

	payload := map[string]interface{}{
		event.KeyPreviousStatus: decision.PreviousStatus.String(),
		event.KeyNewStatus:      decision.NextStatus.String(),
		event.KeyTrigger:        act.trigger.String(),
	}
	if decision.Notify != workflow.NotifyNone {
		payload[event.KeyNotification] = string(decision.Notify)
	}
	if act.reason != "" {
		payload[event.KeyReason] = act.reason
	}

	s.dispatcher.DispatchAsync(ctx, event.NewEvent(eventType, snap.expense.ID, snap.expense.CompanyID, snap.actor.ID, payload))
}
