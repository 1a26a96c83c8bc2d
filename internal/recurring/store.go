package recurring

import (
	"context"
	"time"

	"gorm.io/gorm"

	"gelgid/internal/models"
)

// gormTransactionStore adapts GORM to the TransactionStore port.
type gormTransactionStore struct {
	db *gorm.DB
}

// NewTransactionStore returns a TransactionStore backed by GORM.
func NewTransactionStore(db *gorm.DB) TransactionStore {
	return &gormTransactionStore{db: db}
}

func (s *gormTransactionStore) Create(ctx context.Context, instance *models.Transaction) error {
	return s.db.WithContext(ctx).Create(instance).Error
}

// CountForRuleInRange counts including soft-deleted rows: a user who removed
// a materialized instance has opted out of that month, and the row also still
// occupies the (rule, month) uniqueness slot.
func (s *gormTransactionStore) CountForRuleInRange(ctx context.Context, ruleID uint, startInclusive, endExclusive time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Unscoped().
		Model(&models.Transaction{}).
		Where("recurring_rule_id = ? AND date >= ? AND date < ?", ruleID, startInclusive, endExclusive).
		Count(&count).Error
	return count, err
}

// gormRuleStore adapts GORM to the RuleStore port.
type gormRuleStore struct {
	db *gorm.DB
}

// NewRuleStore returns a RuleStore backed by GORM.
func NewRuleStore(db *gorm.DB) RuleStore {
	return &gormRuleStore{db: db}
}

func (s *gormRuleStore) SetLastProcessed(ctx context.Context, ruleID uint, processedAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.RecurringRule{}).
		Where("id = ?", ruleID).
		Update("last_processed_at", processedAt).Error
}
