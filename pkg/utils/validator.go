package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ParseAmount parses a money amount with at most two fractional digits,
// strictly positive and not above max.
func ParseAmount(raw string, max decimal.Decimal) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	if strings.ContainsAny(raw, "eE") {
		return decimal.Zero, fmt.Errorf("amount must be a plain decimal number: %s", raw)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount is not a number: %s", raw)
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, fmt.Errorf("amount has more than two decimal places: %s", raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive: %s", amount.StringFixed(2))
	}
	if amount.GreaterThan(max) {
		return decimal.Zero, fmt.Errorf("amount exceeds maximum limit: %s", max.StringFixed(2))
	}
	return amount, nil
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must use YYYY-MM-DD: %s", raw)
	}
	return t, nil
}

// ValidateExpenseDate checks that date is not after today and not more than
// one year before today, comparing calendar days in UTC.
func ValidateExpenseDate(date, now time.Time) error {
	today := truncateDay(now)
	day := truncateDay(date)

	if day.After(today) {
		return fmt.Errorf("expense date cannot be in the future: %s", day.Format(DateLayout))
	}
	if day.Before(today.AddDate(-1, 0, 0)) {
		return fmt.Errorf("expense date cannot be more than one year ago: %s", day.Format(DateLayout))
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SanitizeString trims s and removes control characters other than tab and newline
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
