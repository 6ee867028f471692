package workflow

import (
	"fmt"
	"time"
)

// ErrorKind classifies why a workflow action was refused
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindNotFounder      ErrorKind = "NOT_FOUNDER"
	KindSelfApproval    ErrorKind = "SELF_APPROVAL"
	KindSelfRejection   ErrorKind = "SELF_REJECTION"
	KindAlreadyApproved ErrorKind = "ALREADY_APPROVED"
	KindWrongState      ErrorKind = "WRONG_STATE"
	KindNotOwner        ErrorKind = "NOT_OWNER"
	KindMissingReason   ErrorKind = "MISSING_REASON"
	KindCooldownActive  ErrorKind = "COOLDOWN_ACTIVE"
)

var kindMessages = map[ErrorKind]string{
	KindNotFounder:      "only founders can perform this action",
	KindSelfApproval:    "you cannot approve your own expense",
	KindSelfRejection:   "you cannot reject your own expense",
	KindAlreadyApproved: "you have already approved this expense",
	KindWrongState:      "expense is not in a state that allows this action",
	KindNotOwner:        "only the expense owner can perform this action",
	KindMissingReason:   "a reason is required",
	KindCooldownActive:  "a reminder was sent recently, please wait before sending another",
}

// Message returns the user-facing text for the kind
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return string(k)
}

// Violation is a refused workflow action. It is a business outcome, not a fault.
// Status is set for WrongState, RetryAfter for CooldownActive.
type Violation struct {
	Kind       ErrorKind
	Status     State
	RetryAfter time.Duration
}

// Error implements error
func (v *Violation) Error() string {
	switch {
	case v.Kind == KindWrongState && v.Status != "":
		return fmt.Sprintf("%s (status %s)", v.Kind.Message(), v.Status)
	case v.Kind == KindCooldownActive && v.RetryAfter > 0:
		return fmt.Sprintf("%s (retry in %s)", v.Kind.Message(), v.RetryAfter.Round(time.Minute))
	}
	return v.Kind.Message()
}

// Is matches any violation of the same kind, so errors.Is(err, ErrWrongState) works
func (v *Violation) Is(target error) bool {
	t, ok := target.(*Violation)
	if !ok {
		return false
	}
	return t.Kind == v.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrNotFounder      = &Violation{Kind: KindNotFounder}
	ErrSelfApproval    = &Violation{Kind: KindSelfApproval}
	ErrSelfRejection   = &Violation{Kind: KindSelfRejection}
	ErrAlreadyApproved = &Violation{Kind: KindAlreadyApproved}
	ErrWrongState      = &Violation{Kind: KindWrongState}
	ErrNotOwner        = &Violation{Kind: KindNotOwner}
	ErrMissingReason   = &Violation{Kind: KindMissingReason}
	ErrCooldownActive  = &Violation{Kind: KindCooldownActive}
)
