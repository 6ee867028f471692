package workflow

import "strings"

// Role is the membership role of a user within a company
type Role string

const (
	RoleFounder Role = "FOUNDER"
	RoleMember  Role = "MEMBER"
)

// Actor is the user attempting a workflow action
type Actor struct {
	UserID int64
	Role   Role
}

// IsFounder reports whether the actor holds the elevated role
func (a Actor) IsFounder() bool {
	return a.Role == RoleFounder
}

// Subject is the part of an expense the workflow decides on
type Subject struct {
	ExpenseID int64
	OwnerID   int64
	Status    State
}

// Notification names an owner-facing message a transition should produce
type Notification string

const (
	NotifyNone               Notification = ""
	NotifyExpenseApproved    Notification = "EXPENSE_APPROVED"
	NotifyExpenseRejected    Notification = "EXPENSE_REJECTED"
	NotifyWithdrawalApproved Notification = "WITHDRAWAL_APPROVED"
	NotifyWithdrawalRejected Notification = "WITHDRAWAL_REJECTED"
)

// Decision is the outcome of a workflow decision function.
// When Allowed is false only Reason is meaningful.
type Decision struct {
	Allowed             bool
	Reason              ErrorKind
	Trigger             Trigger
	PreviousStatus      State
	NextStatus          State
	AppendLedger        bool
	BecameFullyApproved bool
	AutoApproved        bool
	Notify              Notification
	Tally               Tally
}

// Err returns the decision as a *Violation, or nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	v := &Violation{Kind: d.Reason}
	if d.Reason == KindWrongState {
		v.Status = d.PreviousStatus
	}
	return v
}

// Transitioned reports whether the decision changes the stored status
func (d Decision) Transitioned() bool {
	return d.Allowed && d.NextStatus != d.PreviousStatus
}

func deny(kind ErrorKind, trigger Trigger, from State) Decision {
	return Decision{Allowed: false, Reason: kind, Trigger: trigger, PreviousStatus: from}
}

// Submit decides the initial status of a new expense from the number of
// eligible approvers other than its owner.
func Submit(eligibleApproverCount int) Decision {
	if eligibleApproverCount <= 0 {
		return Decision{
			Allowed:      true,
			NextStatus:   StateApproved,
			AutoApproved: true,
		}
	}
	return Decision{
		Allowed:    true,
		NextStatus: StatePendingApproval,
		Tally:      Tally{Required: eligibleApproverCount},
	}
}

// Approve records a founder's approval of the primary expense request
func Approve(subject Subject, actor Actor, ledger []int64, eligibleApprovers []int64) Decision {
	return decideApproval(TriggerApprove, KindSelfApproval, StateApproved, NotifyExpenseApproved,
		subject, actor, ledger, eligibleApprovers)
}

// ApproveWithdrawal records a founder's approval of a withdrawal request
func ApproveWithdrawal(subject Subject, actor Actor, withdrawalLedger []int64, eligibleApprovers []int64) Decision {
	return decideApproval(TriggerApproveWithdrawal, KindSelfApproval, StateWithdrawalApproved, NotifyWithdrawalApproved,
		subject, actor, withdrawalLedger, eligibleApprovers)
}

func decideApproval(trigger Trigger, selfKind ErrorKind, completeState State, notify Notification,
	subject Subject, actor Actor, ledger []int64, eligibleApprovers []int64) Decision {
	from := subject.Status

	if !actor.IsFounder() {
		return deny(KindNotFounder, trigger, from)
	}
	if actor.UserID == subject.OwnerID {
		return deny(selfKind, trigger, from)
	}
	if !expenseLifecycle.CanFire(from, trigger) {
		return deny(KindWrongState, trigger, from)
	}
	if containsID(ledger, actor.UserID) {
		return deny(KindAlreadyApproved, trigger, from)
	}

	tally := approvalTally(subject.OwnerID, actor.UserID, ledger, eligibleApprovers)
	next, err := expenseLifecycle.Fire(from, trigger, tally)
	if err != nil {
		return deny(KindWrongState, trigger, from)
	}

	d := Decision{
		Allowed:        true,
		Trigger:        trigger,
		PreviousStatus: from,
		NextStatus:     next,
		AppendLedger:   true,
		Tally:          tally,
	}
	if next == completeState {
		d.BecameFullyApproved = true
		d.Notify = notify
	}
	return d
}

// Reject refuses an expense that is still awaiting approval
func Reject(subject Subject, actor Actor, reason string) Decision {
	return decideRejection(TriggerReject, NotifyExpenseRejected, subject, actor, reason)
}

// RejectWithdrawal refuses a pending withdrawal request
func RejectWithdrawal(subject Subject, actor Actor, reason string) Decision {
	return decideRejection(TriggerRejectWithdrawal, NotifyWithdrawalRejected, subject, actor, reason)
}

func decideRejection(trigger Trigger, notify Notification, subject Subject, actor Actor, reason string) Decision {
	from := subject.Status

	if !actor.IsFounder() {
		return deny(KindNotFounder, trigger, from)
	}
	if actor.UserID == subject.OwnerID {
		return deny(KindSelfRejection, trigger, from)
	}
	if !expenseLifecycle.CanFire(from, trigger) {
		return deny(KindWrongState, trigger, from)
	}
	if strings.TrimSpace(reason) == "" {
		return deny(KindMissingReason, trigger, from)
	}

	next, err := expenseLifecycle.Fire(from, trigger, Tally{})
	if err != nil {
		return deny(KindWrongState, trigger, from)
	}

	return Decision{
		Allowed:        true,
		Trigger:        trigger,
		PreviousStatus: from,
		NextStatus:     next,
		Notify:         notify,
	}
}

// RequestWithdrawal asks for reimbursement of an approved expense
func RequestWithdrawal(subject Subject, actor Actor, eligibleApproverCount int) Decision {
	from := subject.Status

	if actor.UserID != subject.OwnerID {
		return deny(KindNotOwner, TriggerRequestWithdrawal, from)
	}
	if !expenseLifecycle.CanFire(from, TriggerRequestWithdrawal) {
		return deny(KindWrongState, TriggerRequestWithdrawal, from)
	}

	tally := Tally{Required: eligibleApproverCount}
	next, err := expenseLifecycle.Fire(from, TriggerRequestWithdrawal, tally)
	if err != nil {
		return deny(KindWrongState, TriggerRequestWithdrawal, from)
	}

	return Decision{
		Allowed:        true,
		Trigger:        TriggerRequestWithdrawal,
		PreviousStatus: from,
		NextStatus:     next,
		AutoApproved:   next == StateWithdrawalApproved,
		Tally:          tally,
	}
}

// ConfirmReceipt marks reimbursed funds as received by the owner
func ConfirmReceipt(subject Subject, actor Actor) Decision {
	from := subject.Status

	if actor.UserID != subject.OwnerID {
		return deny(KindNotOwner, TriggerConfirmReceipt, from)
	}
	if !expenseLifecycle.CanFire(from, TriggerConfirmReceipt) {
		return deny(KindWrongState, TriggerConfirmReceipt, from)
	}

	next, err := expenseLifecycle.Fire(from, TriggerConfirmReceipt, Tally{})
	if err != nil {
		return deny(KindWrongState, TriggerConfirmReceipt, from)
	}

	return Decision{
		Allowed:        true,
		Trigger:        TriggerConfirmReceipt,
		PreviousStatus: from,
		NextStatus:     next,
	}
}

// EligibleApprovers filters founder IDs down to the approvers of an expense
func EligibleApprovers(ownerID int64, founderIDs []int64) []int64 {
	seen := make(map[int64]bool, len(founderIDs))
	result := make([]int64, 0, len(founderIDs))
	for _, id := range founderIDs {
		if id == ownerID || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

// PendingApprovers returns eligible approvers with no entry on the ledger
func PendingApprovers(ownerID int64, ledger []int64, founderIDs []int64) []int64 {
	var pending []int64
	for _, id := range EligibleApprovers(ownerID, founderIDs) {
		if !containsID(ledger, id) {
			pending = append(pending, id)
		}
	}
	return pending
}

// approvalTally counts ledger entries from approvers who are still eligible,
// plus the approval being recorded now.
func approvalTally(ownerID, actorID int64, ledger []int64, founderIDs []int64) Tally {
	eligible := EligibleApprovers(ownerID, founderIDs)

	counted := 0
	for _, id := range EligibleApprovers(ownerID, ledger) {
		if containsID(eligible, id) {
			counted++
		}
	}
	if !containsID(ledger, actorID) {
		counted++
	}

	return Tally{Approvals: counted, Required: len(eligible)}
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
