package service

import (
	"fmt"
	"strings"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

func expenseSummary(expense *entity.Expense) string {
	return fmt.Sprintf("%s %s on %s",
		expense.Amount().StringFixed(2),
		strings.ToLower(expense.Category),
		expense.ExpenseDate.Format("2006-01-02"))
}

// ownerMessage renders the e-mail for a notification kind
func ownerMessage(kind workflow.Notification, expense *entity.Expense, owner *entity.Member, actorName, reason string) (port.Message, error) {
	var subject, headline string
	switch kind {
	case workflow.NotifyExpenseApproved:
		subject = "Your expense was approved"
		headline = "All founders have approved your expense. You can now request a withdrawal."
	case workflow.NotifyExpenseRejected:
		subject = "Your expense was rejected"
		headline = fmt.Sprintf("%s rejected your expense.", actorName)
	case workflow.NotifyWithdrawalApproved:
		subject = "Your withdrawal was approved"
		headline = "All founders have approved your withdrawal. Confirm receipt once the funds arrive."
	case workflow.NotifyWithdrawalRejected:
		subject = "Your withdrawal was rejected"
		headline = fmt.Sprintf("%s rejected your withdrawal request.", actorName)
	default:
		return port.Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n%s\n\n", owner.Name, headline)
	fmt.Fprintf(&b, "Expense #%d: %s\n", expense.ID, expenseSummary(expense))
	fmt.Fprintf(&b, "Description: %s\n", expense.Description)
	if reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", reason)
	}
	b.WriteString("\nThis message was sent automatically by Founders Tab.\n")

	return port.Message{
		To:      owner.Email,
		Subject: fmt.Sprintf("%s: #%d", subject, expense.ID),
		Body:    b.String(),
	}, nil
}

// nudgeMessage renders a reminder to one pending approver
func nudgeMessage(nudgeType workflow.NudgeType, expense *entity.Expense, owner, approver *entity.Member) port.Message {
	what := "approve an expense"
	if nudgeType == workflow.NudgeWithdrawal {
		what = "approve a withdrawal"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n%s is waiting for you to %s.\n\n", approver.Name, owner.Name, what)
	fmt.Fprintf(&b, "Expense #%d: %s\n", expense.ID, expenseSummary(expense))
	fmt.Fprintf(&b, "Description: %s\n", expense.Description)
	b.WriteString("\nThis message was sent automatically by Founders Tab.\n")

	return port.Message{
		To:      approver.Email,
		Subject: fmt.Sprintf("Reminder: %s is waiting on you (#%d)", owner.Name, expense.ID),
		Body:    b.String(),
	}
}
