package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/founderstab/founders-tab/internal/application/dispatcher"
	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/event"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

// Test members: company 1 has three founders and one plain member,
// company 2 has a single founder.
const (
	alice int64 = 1
	bob   int64 = 2
	carol int64 = 3
	dave  int64 = 4
	erin  int64 = 9
)

// memStore is an in-memory backing store shared by the repository fakes
type memStore struct {
	mu            sync.Mutex
	nextID        int64
	members       map[int64]*entity.Member
	expenses      map[int64]*entity.Expense
	approvals     []*entity.Approval
	history       []*entity.ExpenseHistory
	nudges        []*entity.NudgeRecord
	notifications []*entity.NotificationLog
	settings      map[int64]*entity.CompanySettings

	createApprovalErr error
	updateStatusErr   error
	historyErr        error
}

func newMemStore() *memStore {
	s := &memStore{
		nextID:   100,
		members:  map[int64]*entity.Member{},
		expenses: map[int64]*entity.Expense{},
		settings: map[int64]*entity.CompanySettings{},
	}
	s.addMember(&entity.Member{ID: alice, CompanyID: 1, Name: "Alice", Email: "alice@example.com", Role: workflow.RoleFounder})
	s.addMember(&entity.Member{ID: bob, CompanyID: 1, Name: "Bob", Email: "bob@example.com", Role: workflow.RoleFounder})
	s.addMember(&entity.Member{ID: carol, CompanyID: 1, Name: "Carol", Email: "carol@example.com", Role: workflow.RoleFounder})
	s.addMember(&entity.Member{ID: dave, CompanyID: 1, Name: "Dave", Email: "dave@example.com", Role: workflow.RoleMember})
	s.addMember(&entity.Member{ID: erin, CompanyID: 2, Name: "Erin", Email: "erin@example.com", Role: workflow.RoleFounder})
	return s
}

func (s *memStore) addMember(m *entity.Member) {
	s.members[m.ID] = m
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// seedExpense stores an expense directly in the given status
func (s *memStore) seedExpense(ownerID int64, status workflow.State) *entity.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := s.members[ownerID]
	e := &entity.Expense{
		ID:          s.id(),
		CompanyID:   owner.CompanyID,
		OwnerID:     ownerID,
		AmountCents: 12050,
		Category:    "TRAVEL",
		Description: "Train to investor meeting",
		ExpenseDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:      status,
	}
	s.expenses[e.ID] = e
	cp := *e
	return &cp
}

func (s *memStore) seedApproval(expenseID, approverID int64, kind entity.LedgerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals = append(s.approvals, &entity.Approval{ID: s.id(), ExpenseID: expenseID, ApproverID: approverID, Kind: kind})
}

func (s *memStore) status(expenseID int64) workflow.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses[expenseID].Status
}

func (s *memStore) ledger(expenseID int64, kind entity.LedgerKind) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, a := range s.approvals {
		if a.ExpenseID == expenseID && a.Kind == kind {
			ids = append(ids, a.ApproverID)
		}
	}
	return ids
}

func (s *memStore) historyFor(expenseID int64) []*entity.ExpenseHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.ExpenseHistory
	for _, h := range s.history {
		if h.ExpenseID == expenseID {
			out = append(out, h)
		}
	}
	return out
}

type memExpenses struct{ *memStore }

func (r memExpenses) Create(ctx context.Context, expense *entity.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	expense.ID = r.id()
	cp := *expense
	r.expenses[expense.ID] = &cp
	return nil
}

func (r memExpenses) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r memExpenses) List(ctx context.Context, filter port.ExpenseFilter) ([]*entity.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Expense
	for _, e := range r.expenses {
		if e.CompanyID != filter.CompanyID {
			continue
		}
		if filter.OwnerID != 0 && e.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memExpenses) UpdateStatus(ctx context.Context, id int64, from, to workflow.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateStatusErr != nil {
		return r.updateStatusErr
	}
	e, ok := r.expenses[id]
	if !ok || e.Status != from {
		return port.ErrStatusConflict
	}
	e.Status = to
	return nil
}

func (r memExpenses) SetRejection(ctx context.Context, id int64, rejectedBy int64, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.expenses[id]
	e.RejectedBy = &rejectedBy
	e.RejectionReason = reason
	e.RejectedAt = &at
	return nil
}

type memApprovals struct{ *memStore }

func (r memApprovals) Create(ctx context.Context, approval *entity.Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createApprovalErr != nil {
		return r.createApprovalErr
	}
	for _, a := range r.approvals {
		if a.ExpenseID == approval.ExpenseID && a.ApproverID == approval.ApproverID && a.Kind == approval.Kind {
			return port.ErrDuplicateApproval
		}
	}
	approval.ID = r.id()
	cp := *approval
	r.approvals = append(r.approvals, &cp)
	return nil
}

func (r memApprovals) GetByExpenseID(ctx context.Context, expenseID int64, kind entity.LedgerKind) ([]*entity.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Approval
	for _, a := range r.approvals {
		if a.ExpenseID == expenseID && a.Kind == kind {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memApprovals) GetAllByExpenseID(ctx context.Context, expenseID int64) ([]*entity.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Approval
	for _, a := range r.approvals {
		if a.ExpenseID == expenseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memApprovals) CountByCompany(ctx context.Context, companyID int64, kind entity.LedgerKind) (map[int64]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[int64]int{}
	for _, a := range r.approvals {
		if e, ok := r.expenses[a.ExpenseID]; ok && e.CompanyID == companyID && a.Kind == kind {
			counts[a.ExpenseID]++
		}
	}
	return counts, nil
}

type memMembers struct{ *memStore }

func (r memMembers) GetByID(ctx context.Context, id int64) (*entity.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[id], nil
}

func (r memMembers) GetByCompanyID(ctx context.Context, companyID int64) ([]*entity.Member, error) {
	return r.filter(func(m *entity.Member) bool { return m.CompanyID == companyID }), nil
}

func (r memMembers) GetFounders(ctx context.Context, companyID int64) ([]*entity.Member, error) {
	return r.filter(func(m *entity.Member) bool { return m.CompanyID == companyID && m.IsFounder() }), nil
}

func (r memMembers) filter(keep func(*entity.Member) bool) []*entity.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Member
	for _, m := range r.members {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memSettings struct{ *memStore }

func (r memSettings) Get(ctx context.Context, companyID int64) (*entity.CompanySettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings[companyID], nil
}

func (r memSettings) Upsert(ctx context.Context, settings *entity.CompanySettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *settings
	r.settings[settings.CompanyID] = &cp
	return nil
}

type memNudges struct{ *memStore }

func (r memNudges) Create(ctx context.Context, nudge *entity.NudgeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	nudge.ID = r.id()
	cp := *nudge
	r.nudges = append(r.nudges, &cp)
	return nil
}

func (r memNudges) Latest(ctx context.Context, expenseID int64, nudgeType string) (*entity.NudgeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.NudgeRecord
	for _, n := range r.nudges {
		if n.ExpenseID == expenseID && n.Type == nudgeType && (latest == nil || n.SentAt.After(latest.SentAt)) {
			latest = n
		}
	}
	return latest, nil
}

type memHistory struct{ *memStore }

func (r memHistory) Create(ctx context.Context, history *entity.ExpenseHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.historyErr != nil {
		return r.historyErr
	}
	history.ID = r.id()
	cp := *history
	r.history = append(r.history, &cp)
	return nil
}

func (r memHistory) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error) {
	return r.historyFor(expenseID), nil
}

type memNotifications struct{ *memStore }

func (r memNotifications) Create(ctx context.Context, n *entity.NotificationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.id()
	cp := *n
	r.notifications = append(r.notifications, &cp)
	return nil
}

func (r memNotifications) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.NotificationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.NotificationLog
	for _, n := range r.notifications {
		if n.ExpenseID == expenseID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r memNotifications) UpdateStatus(ctx context.Context, id int64, status string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id {
			n.Status = status
			n.ErrorMessage = errorMsg
		}
	}
	return nil
}

func (r memNotifications) MarkSent(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, n := range r.notifications {
		if n.ID == id {
			n.Status = entity.NotificationStatusSent
			n.SentAt = &now
		}
	}
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// recordingDispatcher keeps async events instead of running handlers
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (d *recordingDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}
func (d *recordingDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}
func (d *recordingDispatcher) Unsubscribe(eventType event.Type, name string) {}
func (d *recordingDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.DispatchAsync(ctx, evt)
	return nil
}
func (d *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}
func (d *recordingDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo { return nil }
func (d *recordingDispatcher) Close() error                                             { return nil }

func (d *recordingDispatcher) last() *event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) == 0 {
		return nil
	}
	return d.events[len(d.events)-1]
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

type mockMailer struct {
	mu       sync.Mutex
	sent     []port.Message
	sendFunc func(ctx context.Context, msg port.Message) error
}

func (m *mockMailer) Send(ctx context.Context, msg port.Message) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.sent {
		out = append(out, msg.To)
	}
	return out
}

type mockMetrics struct {
	mu            sync.Mutex
	transitions   []string
	refusals      []string
	notifications []string
	nudges        []string
}

func (m *mockMetrics) RecordTransition(trigger, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, trigger+":"+from+"->"+to)
}

func (m *mockMetrics) RecordRefusal(trigger, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refusals = append(m.refusals, trigger+":"+reason)
}

func (m *mockMetrics) RecordNotification(kind, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, kind+":"+status)
}

func (m *mockMetrics) RecordNudge(nudgeType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nudges = append(m.nudges, nudgeType)
}

// fixture wires every service to one memStore
type fixture struct {
	store      *memStore
	dispatcher *recordingDispatcher
	mailer     *mockMailer
	metrics    *mockMetrics
	now        time.Time
}

func newFixture() *fixture {
	return &fixture{
		store:      newMemStore(),
		dispatcher: &recordingDispatcher{},
		mailer:     &mockMailer{},
		metrics:    &mockMetrics{},
		now:        time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) expenseService() ExpenseService {
	svc := NewExpenseService(memExpenses{f.store}, memApprovals{f.store}, memMembers{f.store}, memHistory{f.store},
		&mockTxManager{}, f.dispatcher, f.metrics, &mockLogger{})
	svc.(*expenseServiceImpl).now = f.clock
	return svc
}

func (f *fixture) workflowService() WorkflowService {
	svc := NewWorkflowService(memExpenses{f.store}, memApprovals{f.store}, memMembers{f.store}, memHistory{f.store},
		&mockTxManager{}, f.dispatcher, f.metrics, &mockLogger{})
	svc.(*workflowServiceImpl).now = f.clock
	return svc
}

func (f *fixture) notificationService() NotificationService {
	return NewNotificationService(memExpenses{f.store}, memMembers{f.store}, memNotifications{f.store},
		f.mailer, f.metrics, &mockLogger{})
}

func (f *fixture) nudgeService() NudgeService {
	svc := NewNudgeService(NudgeDeps{
		Expenses:      memExpenses{f.store},
		Approvals:     memApprovals{f.store},
		Members:       memMembers{f.store},
		Settings:      memSettings{f.store},
		Nudges:        memNudges{f.store},
		History:       memHistory{f.store},
		Notifications: memNotifications{f.store},
		Mailer:        f.mailer,
		Dispatcher:    f.dispatcher,
		Metrics:       f.metrics,
		Logger:        &mockLogger{},
	})
	svc.(*nudgeServiceImpl).now = f.clock
	return svc
}
