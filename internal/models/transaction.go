package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents a single income or expense record. Instances
// generated from a recurring rule carry IsRecurring, a back-reference to the
// rule, and a MonthKey ("2006-01") that is unique per rule. The back-reference
// is non-owning: deleting the rule leaves its generated transactions in place.
type Transaction struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Description string          `json:"description"`
	Category    string          `gorm:"not null" json:"category"`
	Date        time.Time       `gorm:"not null;index" json:"date"`

	IsRecurring     bool    `gorm:"default:false" json:"is_recurring"`
	RecurringRuleID *uint   `gorm:"uniqueIndex:idx_rule_month" json:"recurring_rule_id,omitempty"`
	MonthKey        *string `gorm:"size:7;uniqueIndex:idx_rule_month" json:"-"`
}
