package models

import "time"

// User represents the user model in the database. Password is empty for
// users who only ever signed in with Google.
type User struct {
	Base
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	Password         string     `json:"-"`
	Name             string     `json:"name"`
	GoogleSubject    string     `gorm:"index" json:"-"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	RefreshTokenHash string     `gorm:"size:64" json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	Transactions   []Transaction   `gorm:"foreignKey:UserID" json:"transactions,omitempty"`
	RecurringRules []RecurringRule `gorm:"foreignKey:UserID" json:"recurring_rules,omitempty"`
	Assets         []Asset         `gorm:"foreignKey:UserID" json:"assets,omitempty"`
}
