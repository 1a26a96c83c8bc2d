package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "gelgid/internal/errors"
	"gelgid/internal/logger"
	"gelgid/internal/models"
	"gelgid/internal/pagination"
	"gelgid/internal/recurring"
)

// recurringService handles recurring rule business logic and drives the
// materializer.
type recurringService struct {
	db             *gorm.DB
	materializer   *recurring.Materializer
	lookbackMonths int
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, materializer *recurring.Materializer, lookbackMonths int) RecurringServicer {
	return &recurringService{
		db:             db,
		materializer:   materializer,
		lookbackMonths: lookbackMonths,
	}
}

// CreateRule creates a recurring rule and immediately materializes everything
// it owes from its start date to now, so a backdated rule shows up fully
// populated on the first listing.
func (s *recurringService) CreateRule(
	ctx context.Context,
	userID uint,
	title string,
	txType models.TransactionType,
	amount int64,
	category string,
	dayOfMonth int,
	startDate time.Time,
) (*models.RecurringRule, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	if txType != models.TransactionTypeIncome && txType != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return nil, apperrors.ErrInvalidDayOfMonth
	}
	if startDate.IsZero() {
		startDate = time.Now()
	}

	rule := &models.RecurringRule{
		UserID:     userID,
		Title:      title,
		Type:       txType,
		Amount:     amount,
		Category:   category,
		DayOfMonth: dayOfMonth,
		StartDate:  startDate,
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if _, err := s.materializer.MaterializeFromCreation(ctx, rule); err != nil {
		// The rule exists either way; the periodic pass will catch up on any
		// instances this initial pass missed.
		logger.Get().Warnw("initial materialization incomplete",
			"rule_id", rule.ID,
			"error", err,
		)
	}

	return rule, nil
}

// GetUserRules retrieves a paginated list of the user's recurring rules.
func (s *recurringService) GetUserRules(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringRule], error) {
	page.Defaults()

	base := s.db.Model(&models.RecurringRule{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rules []models.RecurringRule
	if err := base.Scopes(pagination.Paginate(page)).
		Order("day_of_month ASC, id ASC").
		Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(rules, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRuleByID retrieves a single recurring rule owned by the user.
func (s *recurringService) GetRuleByID(userID, ruleID uint) (*models.RecurringRule, error) {
	var rule models.RecurringRule
	if err := s.db.Where("id = ? AND user_id = ?", ruleID, userID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rule, nil
}

// UpdateRule applies the non-nil fields of update to the rule. Already
// materialized instances keep their original values; only future months pick
// up the change.
func (s *recurringService) UpdateRule(userID, ruleID uint, update RuleUpdate) (*models.RecurringRule, error) {
	rule, err := s.GetRuleByID(userID, ruleID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Title != nil {
		if *update.Title == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title cannot be empty")
		}
		updates["title"] = *update.Title
		rule.Title = *update.Title
	}
	if update.Amount != nil {
		if *update.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *update.Amount
		rule.Amount = *update.Amount
	}
	if update.Category != nil {
		if *update.Category == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category cannot be empty")
		}
		updates["category"] = *update.Category
		rule.Category = *update.Category
	}
	if update.DayOfMonth != nil {
		if *update.DayOfMonth < 1 || *update.DayOfMonth > 31 {
			return nil, apperrors.ErrInvalidDayOfMonth
		}
		updates["day_of_month"] = *update.DayOfMonth
		rule.DayOfMonth = *update.DayOfMonth
	}

	if len(updates) == 0 {
		return rule, nil
	}

	if err := s.db.Model(rule).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// DeleteRule removes a recurring rule. Instances it already materialized are
// ordinary transactions by then and stay untouched.
func (s *recurringService) DeleteRule(userID, ruleID uint) error {
	rule, err := s.GetRuleByID(userID, ruleID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(rule).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ProcessBacklog runs a materialization pass over one user's rules and returns
// the number of instances created.
func (s *recurringService) ProcessBacklog(ctx context.Context, userID uint) (int, error) {
	var rules []models.RecurringRule
	if err := s.db.Where("user_id = ?", userID).Find(&rules).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	created, err := s.materializer.MaterializeBacklog(ctx, rules, s.lookbackMonths)
	if err != nil {
		return created, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return created, nil
}

// ProcessAllBacklogs runs a materialization pass over every rule in the
// system. This is what the scheduler invokes.
func (s *recurringService) ProcessAllBacklogs(ctx context.Context) (int, error) {
	var rules []models.RecurringRule
	if err := s.db.WithContext(ctx).Find(&rules).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	created, err := s.materializer.MaterializeBacklog(ctx, rules, s.lookbackMonths)
	if err != nil {
		return created, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return created, nil
}
