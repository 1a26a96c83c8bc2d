// Package recurring turns monthly recurring rules into concrete transaction
// records. The materializer owns the date stepping and duplicate avoidance;
// persistence is reached only through the two narrow store interfaces so the
// logic can be tested against an in-memory fake.
package recurring

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"gelgid/internal/logger"
	"gelgid/internal/models"
)

// TransactionStore is the slice of transaction persistence the materializer needs.
type TransactionStore interface {
	Create(ctx context.Context, instance *models.Transaction) error
	CountForRuleInRange(ctx context.Context, ruleID uint, startInclusive, endExclusive time.Time) (int64, error)
}

// RuleStore persists the advisory watermark after a materialization pass.
type RuleStore interface {
	SetLastProcessed(ctx context.Context, ruleID uint, processedAt time.Time) error
}

// Materializer generates the minimal set of transaction instances so that each
// eligible calendar month between a rule's start date and now has exactly one.
// Concurrent passes for the same rule are collapsed by a single-flight gate
// keyed by rule ID; the store's (rule, month) uniqueness constraint backstops
// the remaining check-then-act window.
type Materializer struct {
	transactions TransactionStore
	rules        RuleStore
	now          func() time.Time
	group        singleflight.Group
}

// NewMaterializer creates a Materializer over the given stores.
func NewMaterializer(transactions TransactionStore, rules RuleStore) *Materializer {
	return &Materializer{
		transactions: transactions,
		rules:        rules,
		now:          time.Now,
	}
}

// WithClock overrides the materializer's clock. Intended for tests.
func (m *Materializer) WithClock(now func() time.Time) *Materializer {
	m.now = now
	return m
}

// Materialize ensures one instance exists per eligible month between
// max(windowStart, rule.StartDate) and now, inclusive. Individual month
// failures are logged and skipped so one bad month never blocks the rest of
// the pass; the returned error covers only context cancellation and the final
// watermark update. Returns the number of instances created.
func (m *Materializer) Materialize(ctx context.Context, rule *models.RecurringRule, windowStart, now time.Time) (int, error) {
	key := fmt.Sprintf("rule-%d", rule.ID)
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		return m.materialize(ctx, rule, windowStart, now)
	})
	created, _ := v.(int)
	return created, err
}

// MaterializeFromCreation runs a pass for a freshly created rule, covering
// everything from the rule's own start date up to now.
func (m *Materializer) MaterializeFromCreation(ctx context.Context, rule *models.RecurringRule) (int, error) {
	return m.Materialize(ctx, rule, rule.StartDate, m.now())
}

// MaterializeBacklog runs a periodic pass over the given rules with a rolling
// lookback window starting at the first day of the month lookbackMonths ago.
// Rules are processed independently; one rule's failure does not block the
// others.
func (m *Materializer) MaterializeBacklog(ctx context.Context, rules []models.RecurringRule, lookbackMonths int) (int, error) {
	now := m.now()
	windowStart := firstOfMonthsAgo(now, lookbackMonths)

	total := 0
	for i := range rules {
		rule := &rules[i]
		created, err := m.Materialize(ctx, rule, windowStart, now)
		total += created
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			logger.Get().Warnw("backlog pass failed for rule",
				"rule_id", rule.ID,
				"error", err,
			)
		}
	}
	return total, nil
}

func (m *Materializer) materialize(ctx context.Context, rule *models.RecurringRule, windowStart, now time.Time) (int, error) {
	start := windowStart
	if rule.StartDate.After(start) {
		start = rule.StartDate
	}
	lower := startOfDay(start)
	loc := start.Location()

	year, month := start.Year(), start.Month()
	candidate := clampedDate(year, month, rule.DayOfMonth, loc)

	// The nominal day already passed within the start month: begin with the
	// next month. A rule created mid-month after its day therefore produces
	// nothing for that month.
	if candidate.Before(lower) {
		year, month = nextMonth(year, month)
		candidate = clampedDate(year, month, rule.DayOfMonth, loc)
	}

	created := 0
	for !candidate.After(now) {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		existing, err := m.transactions.CountForRuleInRange(ctx, rule.ID, candidate, candidate.Add(24*time.Hour))
		switch {
		case err != nil:
			logger.Get().Warnw("recurring existence check failed, skipping month",
				"rule_id", rule.ID,
				"date", candidate.Format("2006-01-02"),
				"error", err,
			)
		case existing == 0:
			if err := m.createInstance(ctx, rule, candidate); err != nil {
				// Includes the lost-race case where a concurrent pass hit the
				// (rule, month) uniqueness constraint first.
				logger.Get().Warnw("recurring instance create failed, skipping month",
					"rule_id", rule.ID,
					"date", candidate.Format("2006-01-02"),
					"error", err,
				)
			} else {
				created++
			}
		}

		year, month = nextMonth(year, month)
		candidate = clampedDate(year, month, rule.DayOfMonth, loc)
	}

	return created, m.rules.SetLastProcessed(ctx, rule.ID, now)
}

func (m *Materializer) createInstance(ctx context.Context, rule *models.RecurringRule, date time.Time) error {
	ruleID := rule.ID
	monthKey := date.Format("2006-01")
	instance := &models.Transaction{
		UserID:          rule.UserID,
		Type:            rule.Type,
		Amount:          rule.Amount,
		Category:        rule.Category,
		Description:     fmt.Sprintf("%s (automatic)", rule.Title),
		Date:            date,
		IsRecurring:     true,
		RecurringRuleID: &ruleID,
		MonthKey:        &monthKey,
	}
	return m.transactions.Create(ctx, instance)
}

// clampedDate returns midnight on day within the given month, clamped to the
// month's actual last day (day 31 in April becomes April 30).
func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// daysIn returns the number of days in the given month. Day zero of the next
// month is the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// firstOfMonthsAgo returns midnight on the first day of the month n months
// before t, stepping months explicitly to avoid end-of-month normalization.
func firstOfMonthsAgo(t time.Time, n int) time.Time {
	year, month := t.Year(), int(t.Month())-n
	for month < 1 {
		month += 12
		year--
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, t.Location())
}
