package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
	"github.com/founderstab/founders-tab/internal/infrastructure/persistence/sqlite"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var expenseRowColumns = []string{
	"id", "company_id", "owner_id", "amount_cents", "category", "description",
	"expense_date", "receipt_ref", "notes", "status", "rejected_by", "rejected_at",
	"rejection_reason", "created_at", "updated_at",
}

func TestExpenseRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db, zap.NewNop())

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO expenses").
		WithArgs(int64(7), int64(1), int64(12550), "SOFTWARE", "Domain name", date, "", "", "PENDING_APPROVAL", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	expense := &entity.Expense{
		CompanyID:   7,
		OwnerID:     1,
		AmountCents: 12550,
		Category:    "SOFTWARE",
		Description: "Domain name",
		ExpenseDate: date,
		Status:      workflow.StatePendingApproval,
	}
	require.NoError(t, repo.Create(context.Background(), expense))
	assert.Equal(t, int64(42), expense.ID)
	assert.False(t, expense.CreatedAt.IsZero())
}

func TestExpenseRepository_GetByID(t *testing.T) {
	t.Run("maps row including rejection metadata", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewExpenseRepository(db, zap.NewNop())

		now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		mock.ExpectQuery("SELECT (.+) FROM expenses WHERE id = ?").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(expenseRowColumns).AddRow(
				5, 7, 1, 9900, "TRAVEL", "Train", now, "r-1", "", "REJECTED",
				int64(2), now, "duplicate", now, now,
			))

		expense, err := repo.GetByID(context.Background(), 5)
		require.NoError(t, err)
		require.NotNil(t, expense)
		assert.Equal(t, workflow.StateRejected, expense.Status)
		require.NotNil(t, expense.RejectedBy)
		assert.Equal(t, int64(2), *expense.RejectedBy)
		assert.Equal(t, "duplicate", expense.RejectionReason)
		assert.Equal(t, "99", expense.Amount().String())
	})

	t.Run("returns nil when missing", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewExpenseRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT (.+) FROM expenses").WillReturnError(sql.ErrNoRows)

		expense, err := repo.GetByID(context.Background(), 99)
		require.NoError(t, err)
		assert.Nil(t, expense)
	})
}

func TestExpenseRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db, zap.NewNop())

	now := time.Now()
	mock.ExpectQuery(`FROM expenses WHERE company_id = \? AND status = \? ORDER BY expense_date DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs(int64(7), "APPROVED", 10, 20).
		WillReturnRows(sqlmock.NewRows(expenseRowColumns).
			AddRow(1, 7, 1, 100, "MEALS", "Lunch", now, "", "", "APPROVED", nil, nil, "", now, now).
			AddRow(2, 7, 2, 200, "MEALS", "Dinner", now, "", "", "APPROVED", nil, nil, "", now, now))

	expenses, err := repo.List(context.Background(), port.ExpenseFilter{
		CompanyID: 7,
		Status:    workflow.StateApproved,
		Limit:     10,
		Offset:    20,
	})
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Nil(t, expenses[0].RejectedBy)
	assert.Equal(t, int64(2), expenses[1].OwnerID)
}

func TestExpenseRepository_UpdateStatus(t *testing.T) {
	t.Run("updates when status matches", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewExpenseRepository(db, zap.NewNop())

		mock.ExpectExec("UPDATE expenses SET status").
			WithArgs("APPROVED", sqlmock.AnyArg(), int64(3), "PENDING_APPROVAL").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateStatus(context.Background(), 3, workflow.StatePendingApproval, workflow.StateApproved))
	})

	t.Run("reports conflict when status moved", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewExpenseRepository(db, zap.NewNop())

		mock.ExpectExec("UPDATE expenses SET status").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), 3, workflow.StatePendingApproval, workflow.StateApproved)
		assert.ErrorIs(t, err, port.ErrStatusConflict)
	})
}

func TestExpenseRepository_UsesContextTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db, zap.NewNop())
	txm := sqlite.NewDB(db, zap.NewNop())

	at := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE expenses SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE expenses\\s+SET rejected_by").
		WithArgs(int64(2), at, "not ours", at, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := txm.WithTransaction(context.Background(), func(ctx context.Context) error {
		if err := repo.UpdateStatus(ctx, 3, workflow.StatePendingApproval, workflow.StateRejected); err != nil {
			return err
		}
		return repo.SetRejection(ctx, 3, 2, "not ours", at)
	})
	require.NoError(t, err)
}

func TestApprovalRepository(t *testing.T) {
	t.Run("create maps unique violation", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewApprovalRepository(db, zap.NewNop())

		mock.ExpectExec("INSERT INTO approvals").
			WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})

		err := repo.Create(context.Background(), &entity.Approval{ExpenseID: 1, ApproverID: 2, Kind: entity.LedgerApproval})
		assert.ErrorIs(t, err, port.ErrDuplicateApproval)
	})

	t.Run("create wraps other errors", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewApprovalRepository(db, zap.NewNop())

		mock.ExpectExec("INSERT INTO approvals").WillReturnError(errors.New("disk I/O error"))

		err := repo.Create(context.Background(), &entity.Approval{ExpenseID: 1, ApproverID: 2, Kind: entity.LedgerApproval})
		require.Error(t, err)
		assert.NotErrorIs(t, err, port.ErrDuplicateApproval)
	})

	t.Run("reads one ledger", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewApprovalRepository(db, zap.NewNop())

		now := time.Now()
		mock.ExpectQuery("FROM approvals").
			WithArgs(int64(1), "WITHDRAWAL").
			WillReturnRows(sqlmock.NewRows([]string{"id", "expense_id", "approver_id", "kind", "created_at"}).
				AddRow(10, 1, 2, "WITHDRAWAL", now).
				AddRow(11, 1, 3, "WITHDRAWAL", now))

		ledger, err := repo.GetByExpenseID(context.Background(), 1, entity.LedgerWithdrawal)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3}, entity.ApproverIDs(ledger))
		assert.Equal(t, entity.LedgerWithdrawal, ledger[0].Kind)
	})

	t.Run("counts per expense", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewApprovalRepository(db, zap.NewNop())

		mock.ExpectQuery("GROUP BY a.expense_id").
			WithArgs(int64(7), "APPROVAL").
			WillReturnRows(sqlmock.NewRows([]string{"expense_id", "count"}).AddRow(1, 2).AddRow(4, 1))

		counts, err := repo.CountByCompany(context.Background(), 7, entity.LedgerApproval)
		require.NoError(t, err)
		assert.Equal(t, map[int64]int{1: 2, 4: 1}, counts)
	})
}

func TestMemberRepository(t *testing.T) {
	t.Run("founders query filters by role", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewMemberRepository(db, zap.NewNop())

		mock.ExpectQuery("FROM members WHERE company_id = \\? AND role = \\?").
			WithArgs(int64(7), "FOUNDER").
			WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "name", "email", "role"}).
				AddRow(1, 7, "Ada", "ada@example.com", "FOUNDER").
				AddRow(2, 7, "Bo", "bo@example.com", "FOUNDER"))

		founders, err := repo.GetFounders(context.Background(), 7)
		require.NoError(t, err)
		require.Len(t, founders, 2)
		assert.True(t, founders[1].IsFounder())
	})

	t.Run("unknown member is nil", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewMemberRepository(db, zap.NewNop())

		mock.ExpectQuery("FROM members WHERE id = ?").WillReturnError(sql.ErrNoRows)

		m, err := repo.GetByID(context.Background(), 404)
		require.NoError(t, err)
		assert.Nil(t, m)
	})
}

func TestCompanySettingsRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCompanySettingsRepository(db, zap.NewNop())

	mock.ExpectQuery("FROM company_settings").WithArgs(int64(7)).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("ON CONFLICT\\(company_id\\) DO UPDATE").
		WithArgs(int64(7), 24, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM company_settings").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "nudge_cooldown_hours"}).AddRow(7, 24))

	ctx := context.Background()
	settings, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, settings)

	require.NoError(t, repo.Upsert(ctx, &entity.CompanySettings{CompanyID: 7, NudgeCooldownHours: 24}))

	settings, err = repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 24, settings.NudgeCooldownHours)
}

func TestNudgeRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNudgeRepository(db, zap.NewNop())

	sent := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO nudges").
		WithArgs(int64(3), "APPROVAL", int64(1), 2, sent).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery("FROM nudges").
		WithArgs(int64(3), "APPROVAL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "expense_id", "nudge_type", "sent_by", "recipient_count", "sent_at"}).
			AddRow(8, 3, "APPROVAL", 1, 2, sent))
	mock.ExpectQuery("FROM nudges").
		WithArgs(int64(3), "WITHDRAWAL").
		WillReturnError(sql.ErrNoRows)

	ctx := context.Background()
	record := &entity.NudgeRecord{ExpenseID: 3, Type: "APPROVAL", SentBy: 1, RecipientCount: 2, SentAt: sent}
	require.NoError(t, repo.Create(ctx, record))
	assert.Equal(t, int64(8), record.ID)

	latest, err := repo.Latest(ctx, 3, "APPROVAL")
	require.NoError(t, err)
	assert.True(t, latest.SentAt.Equal(sent))

	latest, err = repo.Latest(ctx, 3, "WITHDRAWAL")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestHistoryRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHistoryRepository(db, zap.NewNop())

	now := time.Now()
	mock.ExpectExec("INSERT INTO expense_history").
		WithArgs(int64(3), int64(2), "PENDING_APPROVAL", "APPROVED", "APPROVE", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM expense_history").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expense_id", "actor_id", "previous_status", "new_status", "action", "detail", "timestamp"}).
			AddRow(1, 3, 2, "PENDING_APPROVAL", "APPROVED", "APPROVE", "", now))

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &entity.ExpenseHistory{
		ExpenseID:      3,
		ActorID:        2,
		PreviousStatus: "PENDING_APPROVAL",
		NewStatus:      "APPROVED",
		Action:         "APPROVE",
	}))

	records, err := repo.GetByExpenseID(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "APPROVE", records[0].Action)
}

func TestNotificationRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db, zap.NewNop())

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(int64(3), int64(1), "ada@example.com", "EXPENSE_APPROVED", "PENDING", "", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("UPDATE notifications SET status = \\?, sent_at").
		WithArgs("SENT", sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE notifications SET status = \\?, error_message").
		WithArgs("FAILED", "smtp down", int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	n := &entity.NotificationLog{ExpenseID: 3, RecipientID: 1, RecipientEmail: "ada@example.com", Kind: "EXPENSE_APPROVED"}
	require.NoError(t, repo.Create(ctx, n))
	assert.Equal(t, int64(5), n.ID)
	assert.Equal(t, entity.NotificationStatusPending, n.Status)

	require.NoError(t, repo.MarkSent(ctx, 5))
	require.NoError(t, repo.UpdateStatus(ctx, 6, entity.NotificationStatusFailed, "smtp down"))
}
