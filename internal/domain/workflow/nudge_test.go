package workflow

import (
	"testing"
	"time"
)

func TestCanNudge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	tests := []struct {
		name     string
		last     *time.Time
		cooldown int
		allowed  bool
		wait     time.Duration
	}{
		{"never nudged", nil, 24, true, 0},
		{"unlimited", &hourAgo, 0, true, 0},
		{"within cooldown", &hourAgo, 4, false, 3 * time.Hour},
		{"exactly at cooldown", &dayAgo, 24, true, 0},
		{"past cooldown", &dayAgo, 12, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, wait := CanNudge(tt.last, now, tt.cooldown)
			if allowed != tt.allowed || wait != tt.wait {
				t.Errorf("CanNudge() = (%v, %v), want (%v, %v)", allowed, wait, tt.allowed, tt.wait)
			}
		})
	}
}

func TestNudge(t *testing.T) {
	now := time.Now()
	recent := now.Add(-30 * time.Minute)

	tests := []struct {
		name      string
		status    State
		actor     Actor
		nudgeType NudgeType
		last      *time.Time
		cooldown  int
		want      ErrorKind
	}{
		{"owner nudges approvers", StatePendingApproval, founderA, NudgeApproval, nil, 1, KindNone},
		{"owner nudges withdrawal", StateWithdrawalRequested, founderA, NudgeWithdrawal, nil, 1, KindNone},
		{"non-owner", StatePendingApproval, founderB, NudgeApproval, nil, 1, KindNotOwner},
		{"wrong ledger", StatePendingApproval, founderA, NudgeWithdrawal, nil, 1, KindWrongState},
		{"already approved", StateApproved, founderA, NudgeApproval, nil, 1, KindWrongState},
		{"cooldown", StatePendingApproval, founderA, NudgeApproval, &recent, 1, KindCooldownActive},
		{"no cooldown configured", StatePendingApproval, founderA, NudgeApproval, &recent, 0, KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Nudge(subject(tt.status), tt.actor, tt.nudgeType, tt.last, now, tt.cooldown)
			if tt.want == KindNone {
				if !d.Allowed {
					t.Errorf("Nudge() refused: %v", d.Reason)
				}
				return
			}
			if d.Allowed || d.Reason != tt.want {
				t.Errorf("Nudge() = %+v, want %v", d, tt.want)
			}
		})
	}
}

func TestNudge_RetryAfter(t *testing.T) {
	now := time.Now()
	last := now.Add(-2 * time.Hour)

	d := Nudge(subject(StatePendingApproval), founderA, NudgeApproval, &last, now, 6)
	if d.Allowed {
		t.Fatal("Nudge() allowed within cooldown")
	}
	if d.RetryAfter != 4*time.Hour {
		t.Errorf("RetryAfter = %v, want 4h", d.RetryAfter)
	}
}

func TestNudgeType(t *testing.T) {
	if !NudgeApproval.IsValid() || !NudgeWithdrawal.IsValid() || NudgeType("OTHER").IsValid() {
		t.Error("NudgeType.IsValid() mismatch")
	}
	if NudgeWithdrawal.WaitingState() != StateWithdrawalRequested {
		t.Errorf("WaitingState() = %v", NudgeWithdrawal.WaitingState())
	}
}
