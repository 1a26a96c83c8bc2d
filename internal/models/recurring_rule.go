package models

import "time"

// RecurringRule is a user-defined template for a monthly-repeating income or
// expense. DayOfMonth is the nominal day each generated instance should fall
// on; months shorter than DayOfMonth clamp to their last day.
type RecurringRule struct {
	Base
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	Title      string          `gorm:"not null" json:"title"`
	Type       TransactionType `gorm:"not null" json:"type"`
	Amount     int64           `gorm:"type:bigint;not null" json:"amount"`
	Category   string          `gorm:"not null" json:"category"`
	DayOfMonth int             `gorm:"not null" json:"day_of_month"`
	StartDate  time.Time       `gorm:"not null" json:"start_date"`

	// Advisory watermark only; duplicate avoidance rests on the per-month
	// existence check and the (rule, month) uniqueness constraint.
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
}
