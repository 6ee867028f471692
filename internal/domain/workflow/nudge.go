package workflow

import "time"

// NudgeType selects which pending ledger a reminder is about
type NudgeType string

const (
	NudgeApproval   NudgeType = "APPROVAL"
	NudgeWithdrawal NudgeType = "WITHDRAWAL"
)

// IsValid returns true for known nudge types
func (t NudgeType) IsValid() bool {
	return t == NudgeApproval || t == NudgeWithdrawal
}

// WaitingState is the status an expense must be in for the nudge to make sense
func (t NudgeType) WaitingState() State {
	if t == NudgeWithdrawal {
		return StateWithdrawalRequested
	}
	return StatePendingApproval
}

// NudgeDecision is the outcome of a reminder request
type NudgeDecision struct {
	Allowed    bool
	Reason     ErrorKind
	RetryAfter time.Duration
}

// Err returns the refusal as a *Violation, or nil when allowed
func (d NudgeDecision) Err() error {
	if d.Allowed {
		return nil
	}
	return &Violation{Kind: d.Reason, RetryAfter: d.RetryAfter}
}

// CanNudge applies the per-company cooldown. A zero cooldown means unlimited.
// The second return value is the remaining wait when refused.
func CanNudge(lastNudgeAt *time.Time, now time.Time, cooldownHours int) (bool, time.Duration) {
	if lastNudgeAt == nil || cooldownHours <= 0 {
		return true, 0
	}

	cooldown := time.Duration(cooldownHours) * time.Hour
	elapsed := now.Sub(*lastNudgeAt)
	if elapsed >= cooldown {
		return true, 0
	}
	return false, cooldown - elapsed
}

// Nudge decides whether the owner may remind pending approvers now
func Nudge(subject Subject, actor Actor, nudgeType NudgeType, lastNudgeAt *time.Time, now time.Time, cooldownHours int) NudgeDecision {
	if actor.UserID != subject.OwnerID {
		return NudgeDecision{Reason: KindNotOwner}
	}
	if subject.Status != nudgeType.WaitingState() {
		return NudgeDecision{Reason: KindWrongState}
	}

	ok, wait := CanNudge(lastNudgeAt, now, cooldownHours)
	if !ok {
		return NudgeDecision{Reason: KindCooldownActive, RetryAfter: wait}
	}
	return NudgeDecision{Allowed: true}
}
