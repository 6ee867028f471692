package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/event"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

func TestWorkflowService_FullLifecycle(t *testing.T) {
	f := newFixture()
	svc := f.workflowService()
	ctx := context.Background()

	expense := f.store.seedExpense(alice, workflow.StatePendingApproval)

	res, err := svc.Approve(ctx, bob, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingApproval, res.Expense.Status)
	assert.False(t, res.Decision.BecameFullyApproved)
	assert.Equal(t, event.TypeApprovalRecorded, f.dispatcher.last().Type)

	res, err = svc.Approve(ctx, carol, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, res.Expense.Status)
	assert.True(t, res.Decision.BecameFullyApproved)
	evt := f.dispatcher.last()
	assert.Equal(t, event.TypeExpenseTransitioned, evt.Type)
	assert.Equal(t, string(workflow.NotifyExpenseApproved), evt.GetPayloadString(event.KeyNotification))

	_, err = svc.RequestWithdrawal(ctx, alice, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateWithdrawalRequested, f.store.status(expense.ID))

	_, err = svc.ApproveWithdrawal(ctx, carol, expense.ID)
	require.NoError(t, err)
	res, err = svc.ApproveWithdrawal(ctx, bob, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateWithdrawalApproved, res.Expense.Status)
	assert.Equal(t, string(workflow.NotifyWithdrawalApproved), f.dispatcher.last().GetPayloadString(event.KeyNotification))

	res, err = svc.ConfirmReceipt(ctx, alice, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateReceived, res.Expense.Status)

	assert.ElementsMatch(t, []int64{bob, carol}, f.store.ledger(expense.ID, entity.LedgerApproval))
	assert.ElementsMatch(t, []int64{bob, carol}, f.store.ledger(expense.ID, entity.LedgerWithdrawal))
	assert.Len(t, f.store.historyFor(expense.ID), 6)
	assert.Len(t, f.metrics.transitions, 6)
	assert.Empty(t, f.metrics.refusals)
}

func TestWorkflowService_Refusals(t *testing.T) {
	tests := []struct {
		name   string
		status workflow.State
		setup  func(s *memStore, expenseID int64)
		act    func(svc WorkflowService, expenseID int64) error
		want   workflow.ErrorKind
	}{
		{
			name:   "member cannot approve",
			status: workflow.StatePendingApproval,
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.Approve(context.Background(), dave, id)
				return err
			},
			want: workflow.KindNotFounder,
		},
		{
			name:   "owner cannot approve own expense",
			status: workflow.StatePendingApproval,
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.Approve(context.Background(), alice, id)
				return err
			},
			want: workflow.KindSelfApproval,
		},
		{
			name:   "second approval by same founder",
			status: workflow.StatePendingApproval,
			setup: func(s *memStore, id int64) {
				s.seedApproval(id, bob, entity.LedgerApproval)
			},
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.Approve(context.Background(), bob, id)
				return err
			},
			want: workflow.KindAlreadyApproved,
		},
		{
			name:   "approve after approval completed",
			status: workflow.StateApproved,
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.Approve(context.Background(), bob, id)
				return err
			},
			want: workflow.KindWrongState,
		},
		{
			name:   "reject without reason",
			status: workflow.StatePendingApproval,
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.Reject(context.Background(), bob, id, "   ")
				return err
			},
			want: workflow.KindMissingReason,
		},
		{
			name:   "owner cannot reject own expense",
			status: workflow.StatePendingApproval,
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.Reject(context.Background(), alice, id, "no")
				return err
			},
			want: workflow.KindSelfRejection,
		},
		{
			name:   "only owner requests withdrawal",
			status: workflow.StateApproved,
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.RequestWithdrawal(context.Background(), bob, id)
				return err
			},
			want: workflow.KindNotOwner,
		},
		{
			name:   "withdrawal before approval",
			status: workflow.StatePendingApproval,
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.RequestWithdrawal(context.Background(), alice, id)
				return err
			},
			want: workflow.KindWrongState,
		},
		{
			name:   "confirm receipt by someone else",
			status: workflow.StateWithdrawalApproved,
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.ConfirmReceipt(context.Background(), bob, id)
				return err
			},
			want: workflow.KindNotOwner,
		},
		{
			name:   "reject withdrawal of terminal expense",
			status: workflow.StateReceived,
			act: func(svc WorkflowService, id int64) error {
				_, err := svc.RejectWithdrawal(context.Background(), bob, id, "late")
				return err
			},
			want: workflow.KindWrongState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := f.workflowService()
			expense := f.store.seedExpense(alice, tt.status)
			if tt.setup != nil {
				tt.setup(f.store, expense.ID)
			}
			before := len(f.store.historyFor(expense.ID))

			err := tt.act(svc, expense.ID)

			var violation *workflow.Violation
			require.True(t, errors.As(err, &violation), "expected violation, got %v", err)
			assert.Equal(t, tt.want, violation.Kind)
			assert.ErrorIs(t, err, &workflow.Violation{Kind: tt.want})
			assert.Equal(t, tt.status, f.store.status(expense.ID))
			assert.Len(t, f.store.historyFor(expense.ID), before)
			assert.Equal(t, 0, f.dispatcher.count())
			assert.Len(t, f.metrics.refusals, 1)
		})
	}
}

func TestWorkflowService_Reject(t *testing.T) {
	f := newFixture()
	svc := f.workflowService()
	expense := f.store.seedExpense(alice, workflow.StatePendingApproval)
	f.store.seedApproval(expense.ID, bob, entity.LedgerApproval)

	res, err := svc.Reject(context.Background(), carol, expense.ID, "  not a business expense ")
	require.NoError(t, err)

	assert.Equal(t, workflow.StateRejected, res.Expense.Status)
	require.NotNil(t, res.Expense.RejectedBy)
	assert.Equal(t, carol, *res.Expense.RejectedBy)
	assert.Equal(t, "not a business expense", res.Expense.RejectionReason)
	assert.Equal(t, f.now, *res.Expense.RejectedAt)

	evt := f.dispatcher.last()
	assert.Equal(t, string(workflow.NotifyExpenseRejected), evt.GetPayloadString(event.KeyNotification))
	assert.Equal(t, "not a business expense", evt.GetPayloadString(event.KeyReason))

	history := f.store.historyFor(expense.ID)
	require.Len(t, history, 1)
	assert.Equal(t, "PENDING_APPROVAL", history[0].PreviousStatus)
	assert.Equal(t, "REJECTED", history[0].NewStatus)
	assert.Equal(t, "not a business expense", history[0].Detail)
}

func TestWorkflowService_RejectReasonTooLong(t *testing.T) {
	f := newFixture()
	svc := f.workflowService()
	expense := f.store.seedExpense(alice, workflow.StatePendingApproval)

	_, err := svc.Reject(context.Background(), bob, expense.ID, strings.Repeat("x", entity.MaxReasonLength+1))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, workflow.StatePendingApproval, f.store.status(expense.ID))
}

func TestWorkflowService_RejectWithdrawal(t *testing.T) {
	f := newFixture()
	svc := f.workflowService()
	expense := f.store.seedExpense(alice, workflow.StateWithdrawalRequested)

	res, err := svc.RejectWithdrawal(context.Background(), bob, expense.ID, "budget freeze")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateWithdrawalRejected, res.Expense.Status)
	assert.Equal(t, string(workflow.NotifyWithdrawalRejected), f.dispatcher.last().GetPayloadString(event.KeyNotification))
}

func TestWorkflowService_SoloFounderWithdrawalAutoApproves(t *testing.T) {
	f := newFixture()
	svc := f.workflowService()
	expense := f.store.seedExpense(erin, workflow.StateApproved)

	res, err := svc.RequestWithdrawal(context.Background(), erin, expense.ID)
	require.NoError(t, err)

	assert.Equal(t, workflow.StateWithdrawalApproved, res.Expense.Status)
	assert.True(t, res.Decision.AutoApproved)
	evt := f.dispatcher.last()
	assert.Empty(t, evt.GetPayloadString(event.KeyNotification))

	history := f.store.historyFor(expense.ID)
	require.Len(t, history, 1)
	assert.Equal(t, "auto-approved: no other founders", history[0].Detail)
}

func TestWorkflowService_CrossCompanyIsNotFound(t *testing.T) {
	f := newFixture()
	svc := f.workflowService()
	expense := f.store.seedExpense(alice, workflow.StatePendingApproval)

	_, err := svc.Approve(context.Background(), erin, expense.ID)
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	_, err = svc.Approve(context.Background(), bob, 999)
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	_, err = svc.Approve(context.Background(), 12345, expense.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	assert.Empty(t, f.metrics.refusals)
}

func TestWorkflowService_ConcurrentWriterMapping(t *testing.T) {
	t.Run("duplicate ledger entry becomes AlreadyApproved", func(t *testing.T) {
		f := newFixture()
		f.store.createApprovalErr = port.ErrDuplicateApproval
		svc := f.workflowService()
		expense := f.store.seedExpense(alice, workflow.StatePendingApproval)

		_, err := svc.Approve(context.Background(), bob, expense.ID)
		assert.ErrorIs(t, err, workflow.ErrAlreadyApproved)
	})

	t.Run("status conflict becomes WrongState", func(t *testing.T) {
		f := newFixture()
		f.store.updateStatusErr = port.ErrStatusConflict
		svc := f.workflowService()
		expense := f.store.seedExpense(alice, workflow.StateApproved)

		_, err := svc.RequestWithdrawal(context.Background(), alice, expense.ID)
		var violation *workflow.Violation
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, workflow.KindWrongState, violation.Kind)
		assert.Equal(t, workflow.StateApproved, violation.Status)
	})
}

func TestWorkflowService_InfrastructureErrorRollsBack(t *testing.T) {
	f := newFixture()
	f.store.historyErr = errors.New("disk full")

	rolledBack := false
	svc := NewWorkflowService(memExpenses{f.store}, memApprovals{f.store}, memMembers{f.store}, memHistory{f.store},
		&mockTxManager{withTransactionFunc: func(ctx context.Context, fn func(ctx context.Context) error) error {
			err := fn(ctx)
			rolledBack = err != nil
			return err
		}}, f.dispatcher, f.metrics, &mockLogger{})
	expense := f.store.seedExpense(alice, workflow.StatePendingApproval)

	_, err := svc.Approve(context.Background(), bob, expense.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, rolledBack)
	assert.Equal(t, 0, f.dispatcher.count())
	assert.Empty(t, f.metrics.transitions)
	assert.Empty(t, f.metrics.refusals)
}

func TestWorkflowService_DepartedFounderApprovalNotCounted(t *testing.T) {
	f := newFixture()
	svc := f.workflowService()
	expense := f.store.seedExpense(alice, workflow.StatePendingApproval)

	// Carol approved, then lost the founder role
	f.store.seedApproval(expense.ID, carol, entity.LedgerApproval)
	f.store.members[carol].Role = workflow.RoleMember

	res, err := svc.Approve(context.Background(), bob, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, res.Expense.Status)
	assert.Equal(t, 1, res.Decision.Tally.Approvals)
	assert.Equal(t, 1, res.Decision.Tally.Required)
}
