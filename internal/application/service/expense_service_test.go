package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/event"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

func validInput() CreateExpenseInput {
	return CreateExpenseInput{
		Amount:      "120.50",
		Category:    "travel",
		Description: "Train to investor meeting",
		ExpenseDate: "2026-03-02",
	}
}

func TestExpenseService_Create(t *testing.T) {
	t.Run("pending when other founders exist", func(t *testing.T) {
		f := newFixture()
		svc := f.expenseService()

		expense, err := svc.Create(context.Background(), alice, validInput())
		require.NoError(t, err)

		assert.NotZero(t, expense.ID)
		assert.Equal(t, workflow.StatePendingApproval, expense.Status)
		assert.Equal(t, int64(12050), expense.AmountCents)
		assert.Equal(t, "TRAVEL", expense.Category)
		assert.Equal(t, int64(1), expense.CompanyID)
		assert.Equal(t, f.now, expense.CreatedAt)

		history := f.store.historyFor(expense.ID)
		require.Len(t, history, 1)
		assert.Equal(t, entity.ActionSubmit, history[0].Action)
		assert.Empty(t, history[0].PreviousStatus)
		assert.Equal(t, "PENDING_APPROVAL", history[0].NewStatus)

		evt := f.dispatcher.last()
		require.NotNil(t, evt)
		assert.Equal(t, event.TypeExpenseSubmitted, evt.Type)
		assert.Equal(t, []string{"SUBMIT:->PENDING_APPROVAL"}, f.metrics.transitions)
	})

	t.Run("auto-approved for a solo founder", func(t *testing.T) {
		f := newFixture()
		svc := f.expenseService()

		expense, err := svc.Create(context.Background(), erin, validInput())
		require.NoError(t, err)
		assert.Equal(t, workflow.StateApproved, expense.Status)

		history := f.store.historyFor(expense.ID)
		require.Len(t, history, 1)
		assert.Equal(t, "auto-approved: no other founders", history[0].Detail)
	})

	t.Run("plain member needs every founder", func(t *testing.T) {
		f := newFixture()
		svc := f.expenseService()

		expense, err := svc.Create(context.Background(), dave, validInput())
		require.NoError(t, err)
		assert.Equal(t, workflow.StatePendingApproval, expense.Status)

		detail, err := svc.Get(context.Background(), dave, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, detail.RequiredApprovals)
	})

	t.Run("unknown member", func(t *testing.T) {
		f := newFixture()
		_, err := f.expenseService().Create(context.Background(), 777, validInput())
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
}

func TestExpenseService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateExpenseInput)
		field  string
	}{
		{"zero amount", func(in *CreateExpenseInput) { in.Amount = "0" }, "amount"},
		{"negative amount", func(in *CreateExpenseInput) { in.Amount = "-5" }, "amount"},
		{"three decimals", func(in *CreateExpenseInput) { in.Amount = "1.005" }, "amount"},
		{"over maximum", func(in *CreateExpenseInput) { in.Amount = "1000000" }, "amount"},
		{"not a number", func(in *CreateExpenseInput) { in.Amount = "ten" }, "amount"},
		{"blank category", func(in *CreateExpenseInput) { in.Category = "  " }, "category"},
		{"blank description", func(in *CreateExpenseInput) { in.Description = "" }, "description"},
		{"long description", func(in *CreateExpenseInput) {
			in.Description = strings.Repeat("a", entity.MaxDescriptionLength+1)
		}, "description"},
		{"bad date", func(in *CreateExpenseInput) { in.ExpenseDate = "02/03/2026" }, "expense_date"},
		{"future date", func(in *CreateExpenseInput) { in.ExpenseDate = "2026-03-11" }, "expense_date"},
		{"older than a year", func(in *CreateExpenseInput) { in.ExpenseDate = "2025-03-09" }, "expense_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			in := validInput()
			tt.mutate(&in)

			_, err := f.expenseService().Create(context.Background(), alice, in)

			require.ErrorIs(t, err, ErrInvalidInput)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, f.store.expenses)
		})
	}
}

func TestExpenseService_CreateBoundaryAmount(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Amount = "999999.99"

	expense, err := f.expenseService().Create(context.Background(), alice, in)
	require.NoError(t, err)
	assert.Equal(t, int64(99999999), expense.AmountCents)
}

func TestExpenseService_Get(t *testing.T) {
	f := newFixture()
	svc := f.expenseService()
	expense := f.store.seedExpense(alice, workflow.StatePendingApproval)
	f.store.seedApproval(expense.ID, bob, entity.LedgerApproval)

	t.Run("founder sees pending approvers and actions", func(t *testing.T) {
		detail, err := svc.Get(context.Background(), carol, expense.ID)
		require.NoError(t, err)

		assert.Equal(t, 2, detail.RequiredApprovals)
		assert.Len(t, detail.Approvals, 1)
		assert.Empty(t, detail.WithdrawalApprovals)
		assert.Equal(t, []int64{carol}, detail.PendingApprovers)
		assert.ElementsMatch(t, []workflow.Trigger{workflow.TriggerApprove, workflow.TriggerReject}, detail.AllowedActions)
	})

	t.Run("approver who already approved may still reject", func(t *testing.T) {
		detail, err := svc.Get(context.Background(), bob, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, []workflow.Trigger{workflow.TriggerReject}, detail.AllowedActions)
	})

	t.Run("owner has no actions while pending", func(t *testing.T) {
		detail, err := svc.Get(context.Background(), alice, expense.ID)
		require.NoError(t, err)
		assert.Empty(t, detail.AllowedActions)
	})

	t.Run("other company cannot see it", func(t *testing.T) {
		_, err := svc.Get(context.Background(), erin, expense.ID)
		assert.ErrorIs(t, err, ErrExpenseNotFound)
	})
}

func TestExpenseService_List(t *testing.T) {
	f := newFixture()
	svc := f.expenseService()
	f.store.seedExpense(alice, workflow.StatePendingApproval)
	f.store.seedExpense(bob, workflow.StateApproved)
	f.store.seedExpense(alice, workflow.StateApproved)
	f.store.seedExpense(erin, workflow.StateApproved)

	all, err := svc.List(context.Background(), carol, ListExpensesInput{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	approved, err := svc.List(context.Background(), carol, ListExpensesInput{Status: "approved"})
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	mine, err := svc.List(context.Background(), carol, ListExpensesInput{OwnerID: alice, Status: "APPROVED"})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	page, err := svc.List(context.Background(), carol, ListExpensesInput{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	empty, err := svc.List(context.Background(), carol, ListExpensesInput{Offset: 10})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.List(context.Background(), carol, ListExpensesInput{Status: "LOST"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.List(context.Background(), carol, ListExpensesInput{Offset: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExpenseService_History(t *testing.T) {
	f := newFixture()
	expense := f.store.seedExpense(alice, workflow.StatePendingApproval)
	_, err := f.workflowService().Approve(context.Background(), bob, expense.ID)
	require.NoError(t, err)

	history, err := f.expenseService().History(context.Background(), alice, expense.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "APPROVE", history[0].Action)
	assert.Equal(t, "1 of 2 approvals", history[0].Detail)

	_, err = f.expenseService().History(context.Background(), erin, expense.ID)
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}
