package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
)

// Sentinel errors matched with errors.Is by callers
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrMemberNotFound  = errors.New("member not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// ValidationError describes one rejected input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrInvalidInput
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

func loadMember(ctx context.Context, members port.MemberRepository, userID int64) (*entity.Member, error) {
	member, err := members.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// loadExpense hides expenses of other companies behind ErrExpenseNotFound
func loadExpense(ctx context.Context, expenses port.ExpenseRepository, companyID, expenseID int64) (*entity.Expense, error) {
	expense, err := expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	if expense == nil || expense.CompanyID != companyID {
		return nil, ErrExpenseNotFound
	}
	return expense, nil
}

func founderIDs(ctx context.Context, members port.MemberRepository, companyID int64) ([]int64, error) {
	founders, err := members.GetFounders(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load founders: %w", err)
	}
	ids := make([]int64, 0, len(founders))
	for _, f := range founders {
		ids = append(ids, f.ID)
	}
	return ids, nil
}
