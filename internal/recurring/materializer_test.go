package recurring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gelgid/internal/models"
)

// --- in-memory fakes for the store ports ---

type fakeTransactionStore struct {
	mu        sync.Mutex
	nextID    uint
	instances []models.Transaction

	// failDates maps "2006-01-02" to an error returned by Create for that date.
	failDates map[string]error
	countErr  error
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{failDates: map[string]error{}}
}

func (s *fakeTransactionStore) Create(_ context.Context, instance *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failDates[instance.Date.Format("2006-01-02")]; err != nil {
		return err
	}
	s.nextID++
	instance.ID = s.nextID
	s.instances = append(s.instances, *instance)
	return nil
}

func (s *fakeTransactionStore) CountForRuleInRange(_ context.Context, ruleID uint, start, end time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for _, inst := range s.instances {
		if inst.RecurringRuleID != nil && *inst.RecurringRuleID == ruleID &&
			!inst.Date.Before(start) && inst.Date.Before(end) {
			n++
		}
	}
	return n, nil
}

func (s *fakeTransactionStore) dates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.instances))
	for i, inst := range s.instances {
		out[i] = inst.Date.Format("2006-01-02")
	}
	return out
}

type fakeRuleStore struct {
	mu            sync.Mutex
	lastProcessed map[uint]time.Time
	err           error
}

func newFakeRuleStore() *fakeRuleStore {
	return &fakeRuleStore{lastProcessed: map[uint]time.Time{}}
}

func (s *fakeRuleStore) SetLastProcessed(_ context.Context, ruleID uint, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lastProcessed[ruleID] = processedAt
	return nil
}

// --- helpers ---

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testRule(id uint, dayOfMonth int, startDate time.Time) *models.RecurringRule {
	return &models.RecurringRule{
		Base:       models.Base{ID: id},
		UserID:     1,
		Title:      "Rent",
		Type:       models.TransactionTypeExpense,
		Amount:     150000,
		Category:   "Rent",
		DayOfMonth: dayOfMonth,
		StartDate:  startDate,
	}
}

func assertDates(t *testing.T, store *fakeTransactionStore, want ...string) {
	t.Helper()
	got := store.dates()
	if len(got) != len(want) {
		t.Fatalf("expected %d instances %v, got %d: %v", len(want), want, len(got), got)
	}
	seen := map[string]bool{}
	for _, d := range got {
		seen[d] = true
	}
	for _, d := range want {
		if !seen[d] {
			t.Errorf("expected an instance on %s, got %v", d, got)
		}
	}
}

// --- tests ---

func TestMaterialize(t *testing.T) {
	t.Run("one_instance_per_month", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 15, date(2024, time.January, 1))

		created, err := m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.April, 15))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created != 4 {
			t.Errorf("expected 4 created, got %d", created)
		}
		assertDates(t, txStore, "2024-01-15", "2024-02-15", "2024-03-15", "2024-04-15")
	})

	t.Run("idempotent_on_repeat", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 15, date(2024, time.January, 1))

		for i := 0; i < 2; i++ {
			if _, err := m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.April, 15)); err != nil {
				t.Fatalf("pass %d: unexpected error: %v", i, err)
			}
		}
		assertDates(t, txStore, "2024-01-15", "2024-02-15", "2024-03-15", "2024-04-15")
	})

	t.Run("day_31_clamps_to_month_end", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 31, date(2024, time.January, 1))

		if _, err := m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.April, 30)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 2024 is a leap year.
		assertDates(t, txStore, "2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30")
	})

	t.Run("day_31_non_leap_february", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 31, date(2023, time.February, 1))

		if _, err := m.Materialize(context.Background(), rule, date(2023, time.February, 1), date(2023, time.February, 28)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertDates(t, txStore, "2023-02-28")
	})

	t.Run("nothing_before_rule_start_date", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		// Backlog window reaches further back than the rule itself.
		rule := testRule(1, 15, date(2024, time.March, 20))

		if _, err := m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.May, 1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertDates(t, txStore, "2024-04-15")
	})

	t.Run("nothing_after_now", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 15, date(2024, time.January, 1))

		if _, err := m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.March, 14)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertDates(t, txStore, "2024-01-15", "2024-02-15")
	})

	t.Run("mid_month_creation_skips_current_month", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		// Created on the 20th with nominal day 15: the start month gets nothing.
		rule := testRule(1, 15, date(2024, time.March, 20))

		if _, err := m.Materialize(context.Background(), rule, rule.StartDate, date(2024, time.April, 20)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertDates(t, txStore, "2024-04-15")
	})

	t.Run("creation_on_nominal_day_includes_it", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		// Created at 14:00 on the nominal day itself: that day still counts.
		start := time.Date(2024, time.March, 15, 14, 0, 0, 0, time.UTC)
		rule := testRule(1, 15, start)

		if _, err := m.Materialize(context.Background(), rule, start, date(2024, time.March, 31)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertDates(t, txStore, "2024-03-15")
	})

	t.Run("single_failed_month_does_not_block_others", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		txStore.failDates["2024-02-15"] = errors.New("write rejected")
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 15, date(2024, time.January, 1))

		created, err := m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.April, 15))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created != 3 {
			t.Errorf("expected 3 created, got %d", created)
		}
		assertDates(t, txStore, "2024-01-15", "2024-03-15", "2024-04-15")

		// Once the store recovers, the next pass backfills only the missing month.
		delete(txStore.failDates, "2024-02-15")
		created, err = m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.April, 15))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created != 1 {
			t.Errorf("expected 1 created on retry, got %d", created)
		}
		assertDates(t, txStore, "2024-01-15", "2024-02-15", "2024-03-15", "2024-04-15")
	})

	t.Run("existing_instances_are_skipped", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 15, date(2024, time.January, 1))

		ruleID := rule.ID
		monthKey := "2024-02"
		txStore.instances = append(txStore.instances, models.Transaction{
			UserID:          1,
			Date:            date(2024, time.February, 15),
			IsRecurring:     true,
			RecurringRuleID: &ruleID,
			MonthKey:        &monthKey,
		})

		created, err := m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.March, 15))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created != 2 {
			t.Errorf("expected 2 created, got %d", created)
		}
		assertDates(t, txStore, "2024-01-15", "2024-02-15", "2024-03-15")
	})

	t.Run("instance_fields_come_from_rule", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(7, 1, date(2024, time.January, 1))

		if _, err := m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.January, 31)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(txStore.instances) != 1 {
			t.Fatalf("expected 1 instance, got %d", len(txStore.instances))
		}
		inst := txStore.instances[0]
		if inst.Amount != rule.Amount || inst.Type != rule.Type || inst.Category != rule.Category {
			t.Errorf("instance fields do not match rule: %+v", inst)
		}
		if !inst.IsRecurring {
			t.Error("expected IsRecurring to be set")
		}
		if inst.RecurringRuleID == nil || *inst.RecurringRuleID != rule.ID {
			t.Error("expected back-reference to the rule")
		}
		if inst.MonthKey == nil || *inst.MonthKey != "2024-01" {
			t.Errorf("expected month key 2024-01, got %v", inst.MonthKey)
		}
		if inst.Description == "" {
			t.Error("expected auto-generated description")
		}
	})

	t.Run("updates_watermark_after_pass", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(3, 15, date(2024, time.January, 1))
		now := date(2024, time.February, 1)

		if _, err := m.Materialize(context.Background(), rule, rule.StartDate, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ruleStore.lastProcessed[3]; !got.Equal(now) {
			t.Errorf("expected watermark %v, got %v", now, got)
		}
	})

	t.Run("watermark_failure_is_reported", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		ruleStore.err = errors.New("store unavailable")
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 15, date(2024, time.January, 1))

		created, err := m.Materialize(context.Background(), rule, rule.StartDate, date(2024, time.February, 20))
		if err == nil {
			t.Fatal("expected watermark error")
		}
		// Instances still landed before the watermark update failed.
		if created != 2 {
			t.Errorf("expected 2 created, got %d", created)
		}
		assertDates(t, txStore, "2024-01-15", "2024-02-15")
	})

	t.Run("cancelled_context_stops_pass", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 15, date(2024, time.January, 1))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.Materialize(ctx, rule, rule.StartDate, date(2024, time.April, 15))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(txStore.instances) != 0 {
			t.Errorf("expected no instances after cancellation, got %d", len(txStore.instances))
		}
	})

	t.Run("concurrent_passes_create_no_duplicates", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore)
		rule := testRule(1, 15, date(2024, time.January, 1))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = m.Materialize(context.Background(), rule, date(2024, time.January, 1), date(2024, time.April, 15))
			}()
		}
		wg.Wait()

		assertDates(t, txStore, "2024-01-15", "2024-02-15", "2024-03-15", "2024-04-15")
	})
}

func TestMaterializeFromCreation(t *testing.T) {
	txStore := newFakeTransactionStore()
	ruleStore := newFakeRuleStore()
	m := NewMaterializer(txStore, ruleStore).WithClock(func() time.Time {
		return date(2024, time.April, 20)
	})
	rule := testRule(1, 10, date(2024, time.February, 1))

	created, err := m.MaterializeFromCreation(context.Background(), rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 3 {
		t.Errorf("expected 3 created, got %d", created)
	}
	assertDates(t, txStore, "2024-02-10", "2024-03-10", "2024-04-10")
}

func TestMaterializeBacklog(t *testing.T) {
	t.Run("rolling_window_and_rule_isolation", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		m := NewMaterializer(txStore, ruleStore).WithClock(func() time.Time {
			return date(2024, time.June, 20)
		})

		rules := []models.RecurringRule{
			*testRule(1, 5, date(2023, time.January, 1)),
			*testRule(2, 25, date(2023, time.January, 1)),
		}

		created, err := m.MaterializeBacklog(context.Background(), rules, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Window starts 2024-03-01: four 5ths and three 25ths fall inside it.
		if created != 7 {
			t.Errorf("expected 7 created, got %d", created)
		}
		assertDates(t, txStore,
			"2024-03-05", "2024-04-05", "2024-05-05", "2024-06-05",
			"2024-03-25", "2024-04-25", "2024-05-25",
		)
	})

	t.Run("one_rule_failure_does_not_block_others", func(t *testing.T) {
		txStore := newFakeTransactionStore()
		ruleStore := newFakeRuleStore()
		// Watermark updates fail for every rule; instances must still land.
		ruleStore.err = errors.New("store unavailable")
		m := NewMaterializer(txStore, ruleStore).WithClock(func() time.Time {
			return date(2024, time.June, 20)
		})

		rules := []models.RecurringRule{
			*testRule(1, 5, date(2024, time.June, 1)),
			*testRule(2, 10, date(2024, time.June, 1)),
		}

		created, err := m.MaterializeBacklog(context.Background(), rules, 3)
		if err != nil {
			t.Fatalf("backlog should swallow per-rule errors, got %v", err)
		}
		if created != 2 {
			t.Errorf("expected 2 created, got %d", created)
		}
		assertDates(t, txStore, "2024-06-05", "2024-06-10")
	})
}

func TestClampedDate(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		day   int
		want  string
	}{
		{2024, time.January, 31, "2024-01-31"},
		{2024, time.February, 31, "2024-02-29"},
		{2023, time.February, 31, "2023-02-28"},
		{2024, time.April, 31, "2024-04-30"},
		{2024, time.April, 1, "2024-04-01"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d-%02d_day_%d", tc.year, tc.month, tc.day), func(t *testing.T) {
			got := clampedDate(tc.year, tc.month, tc.day, time.UTC).Format("2006-01-02")
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestFirstOfMonthsAgo(t *testing.T) {
	// End-of-month anchors must not normalize into the wrong month.
	got := firstOfMonthsAgo(date(2024, time.July, 31), 3)
	if want := date(2024, time.April, 1); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	got = firstOfMonthsAgo(date(2024, time.February, 10), 3)
	if want := date(2023, time.November, 1); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
