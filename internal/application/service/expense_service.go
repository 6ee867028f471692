package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/founderstab/founders-tab/internal/application/dispatcher"
	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/event"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
	"github.com/founderstab/founders-tab/pkg/utils"
)

// Default and maximum page sizes for expense listings
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// CreateExpenseInput is the raw submission of a new expense
type CreateExpenseInput struct {
	Amount      string
	Category    string
	Description string
	ExpenseDate string
	ReceiptRef  string
	Notes       string
}

// ListExpensesInput filters an expense listing
type ListExpensesInput struct {
	Status  string
	OwnerID int64
	Limit   int
	Offset  int
}

// ExpenseDetail is an expense with its ledgers and the actions open to the viewer
type ExpenseDetail struct {
	Expense             *entity.Expense    `json:"expense"`
	Approvals           []*entity.Approval `json:"approvals"`
	WithdrawalApprovals []*entity.Approval `json:"withdrawal_approvals"`
	RequiredApprovals   int                `json:"required_approvals"`
	PendingApprovers    []int64            `json:"pending_approvers"`
	AllowedActions      []workflow.Trigger `json:"allowed_actions"`
}

// ExpenseService manages expense submission and read access
type ExpenseService interface {
	Create(ctx context.Context, userID int64, input CreateExpenseInput) (*entity.Expense, error)
	Get(ctx context.Context, userID, expenseID int64) (*ExpenseDetail, error)
	List(ctx context.Context, userID int64, input ListExpensesInput) ([]*entity.Expense, error)
	History(ctx context.Context, userID, expenseID int64) ([]*entity.ExpenseHistory, error)
}

type expenseServiceImpl struct {
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

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	approvalRepo port.ApprovalRepository,
	memberRepo port.MemberRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	disp dispatcher.Dispatcher,
	metrics port.Metrics,
	logger Logger,
) ExpenseService {
	if metrics == nil {
		metrics = port.NoopMetrics{}
	}
	return &expenseServiceImpl{
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

// Create validates and stores a new expense. Its initial status depends on
// whether any founder other than the owner is around to approve it.
func (s *expenseServiceImpl) Create(ctx context.Context, userID int64, input CreateExpenseInput) (*entity.Expense, error) {
	owner, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return nil, err
	}

	expense, err := s.buildExpense(owner, input)
	if err != nil {
		return nil, err
	}

	var decision workflow.Decision
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		founders, err := founderIDs(txCtx, s.memberRepo, owner.CompanyID)
		if err != nil {
			return err
		}

		decision = workflow.Submit(len(workflow.EligibleApprovers(owner.ID, founders)))
		expense.Status = decision.NextStatus

		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}

		detail := ""
		if decision.AutoApproved {
			detail = "auto-approved: no other founders"
		}
		history := &entity.ExpenseHistory{
			ExpenseID: expense.ID,
			ActorID:   owner.ID,
			NewStatus: expense.Status.String(),
			Action:    entity.ActionSubmit,
			Detail:    detail,
			Timestamp: expense.CreatedAt,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create expense", "error", err, "owner_id", owner.ID)
		return nil, err
	}

	s.metrics.RecordTransition(entity.ActionSubmit, "", expense.Status.String())
	s.logger.Info("Expense created",
		"id", expense.ID,
		"owner_id", owner.ID,
		"status", expense.Status,
		"auto_approved", decision.AutoApproved,
	)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeExpenseSubmitted, expense.ID, expense.CompanyID, owner.ID,
			map[string]interface{}{
				event.KeyNewStatus: expense.Status.String(),
			}))
	}

	return expense, nil
}

func (s *expenseServiceImpl) buildExpense(owner *entity.Member, input CreateExpenseInput) (*entity.Expense, error) {
	amount, err := utils.ParseAmount(input.Amount, entity.MaxExpenseAmount)
	if err != nil {
		return nil, invalid("amount", err.Error())
	}

	category := strings.ToUpper(utils.SanitizeString(input.Category))
	if category == "" {
		return nil, invalid("category", "category is required")
	}
	if utf8.RuneCountInString(category) > entity.MaxCategoryLength {
		return nil, invalid("category", "category is too long")
	}

	description := utils.SanitizeString(input.Description)
	if description == "" {
		return nil, invalid("description", "description is required")
	}
	if utf8.RuneCountInString(description) > entity.MaxDescriptionLength {
		return nil, invalid("description", "description is too long")
	}

	notes := utils.SanitizeString(input.Notes)
	if utf8.RuneCountInString(notes) > entity.MaxNotesLength {
		return nil, invalid("notes", "notes are too long")
	}

	date, err := utils.ParseDate(input.ExpenseDate)
	if err != nil {
		return nil, invalid("expense_date", err.Error())
	}
	now := s.now()
	if err := utils.ValidateExpenseDate(date, now); err != nil {
		return nil, invalid("expense_date", err.Error())
	}

	return &entity.Expense{
		CompanyID:   owner.CompanyID,
		OwnerID:     owner.ID,
		AmountCents: entity.CentsFromAmount(amount),
		Category:    category,
		Description: description,
		ExpenseDate: date,
		ReceiptRef:  utils.SanitizeString(input.ReceiptRef),
		Notes:       notes,
		CreatedAt:   now,
	}, nil
}

// Get returns an expense of the viewer's company with both ledgers
func (s *expenseServiceImpl) Get(ctx context.Context, userID, expenseID int64) (*ExpenseDetail, error) {
	viewer, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return nil, err
	}
	expense, err := loadExpense(ctx, s.expenseRepo, viewer.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}

	all, err := s.approvalRepo.GetAllByExpenseID(ctx, expense.ID)
	if err != nil {
		s.logger.Error("Failed to load approvals", "error", err, "expense_id", expense.ID)
		return nil, fmt.Errorf("load approvals: %w", err)
	}
	founders, err := founderIDs(ctx, s.memberRepo, expense.CompanyID)
	if err != nil {
		return nil, err
	}

	detail := &ExpenseDetail{
		Expense:             expense,
		Approvals:           []*entity.Approval{},
		WithdrawalApprovals: []*entity.Approval{},
		RequiredApprovals:   len(workflow.EligibleApprovers(expense.OwnerID, founders)),
		PendingApprovers:    []int64{},
	}
	for _, a := range all {
		if a.Kind == entity.LedgerWithdrawal {
			detail.WithdrawalApprovals = append(detail.WithdrawalApprovals, a)
		} else {
			detail.Approvals = append(detail.Approvals, a)
		}
	}

	switch expense.Status {
	case workflow.StatePendingApproval:
		detail.PendingApprovers = append(detail.PendingApprovers,
			workflow.PendingApprovers(expense.OwnerID, entity.ApproverIDs(detail.Approvals), founders)...)
	case workflow.StateWithdrawalRequested:
		detail.PendingApprovers = append(detail.PendingApprovers,
			workflow.PendingApprovers(expense.OwnerID, entity.ApproverIDs(detail.WithdrawalApprovals), founders)...)
	}

	detail.AllowedActions = allowedActions(expense, viewer.Actor(), detail, founders)
	return detail, nil
}

// allowedActions asks each decision function whether the viewer could act now
func allowedActions(expense *entity.Expense, actor workflow.Actor, detail *ExpenseDetail, founders []int64) []workflow.Trigger {
	subject := expense.Subject()
	approvals := entity.ApproverIDs(detail.Approvals)
	withdrawals := entity.ApproverIDs(detail.WithdrawalApprovals)
	eligible := len(workflow.EligibleApprovers(expense.OwnerID, founders))
	const anyReason = "-"

	candidates := []workflow.Decision{
		workflow.Approve(subject, actor, approvals, founders),
		workflow.Reject(subject, actor, anyReason),
		workflow.RequestWithdrawal(subject, actor, eligible),
		workflow.ApproveWithdrawal(subject, actor, withdrawals, founders),
		workflow.RejectWithdrawal(subject, actor, anyReason),
		workflow.ConfirmReceipt(subject, actor),
	}

	actions := []workflow.Trigger{}
	for _, d := range candidates {
		if d.Allowed {
			actions = append(actions, d.Trigger)
		}
	}
	return actions
}

// List returns expenses of the viewer's company
func (s *expenseServiceImpl) List(ctx context.Context, userID int64, input ListExpensesInput) ([]*entity.Expense, error) {
	viewer, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return nil, err
	}

	status := workflow.State(strings.ToUpper(strings.TrimSpace(input.Status)))
	if status != "" && !status.IsValid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", input.Status))
	}
	if input.Offset < 0 {
		return nil, invalid("offset", "offset cannot be negative")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	expenses, err := s.expenseRepo.List(ctx, port.ExpenseFilter{
		CompanyID: viewer.CompanyID,
		OwnerID:   input.OwnerID,
		Status:    status,
		Limit:     limit,
		Offset:    input.Offset,
	})
	if err != nil {
		s.logger.Error("Failed to list expenses", "error", err, "company_id", viewer.CompanyID)
		return nil, err
	}
	if expenses == nil {
		expenses = []*entity.Expense{}
	}
	return expenses, nil
}

// History returns the audit trail of an expense
func (s *expenseServiceImpl) History(ctx context.Context, userID, expenseID int64) ([]*entity.ExpenseHistory, error) {
	viewer, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return nil, err
	}
	if _, err := loadExpense(ctx, s.expenseRepo, viewer.CompanyID, expenseID); err != nil {
		return nil, err
	}

	records, err := s.historyRepo.GetByExpenseID(ctx, expenseID)
	if err != nil {
		s.logger.Error("Failed to load history", "error", err, "expense_id", expenseID)
		return nil, err
	}
	if records == nil {
		records = []*entity.ExpenseHistory{}
	}
	return records, nil
}
