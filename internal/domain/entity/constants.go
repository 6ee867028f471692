package entity

import "github.com/shopspring/decimal"

// Expense input limits
var (
	MaxExpenseAmount = decimal.RequireFromString("999999.99")
)

const (
	MaxCategoryLength    = 64
	MaxDescriptionLength = 500
	MaxNotesLength       = 2000
	MaxReasonLength      = 1000
	MaxNudgeCooldownHour = 720
)

// DefaultCategories are offered by clients; any non-blank category is accepted
var DefaultCategories = []string{
	"SOFTWARE",
	"HARDWARE",
	"TRAVEL",
	"MEALS",
	"LEGAL",
	"MARKETING",
	"OFFICE",
	"OTHER",
}
