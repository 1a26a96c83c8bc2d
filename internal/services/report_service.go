package services

import (
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "gelgid/internal/errors"
	"gelgid/internal/models"
)

// reportService aggregates transactions into time-bucketed reports. Buckets
// are computed in memory after a single ranged query; report windows are
// small enough that pushing the grouping into SQL buys nothing.
type reportService struct {
	db *gorm.DB
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB) ReportServicer {
	return &reportService{db: db}
}

// GetWeeklyReport returns daily income/expense buckets for the rolling
// seven-day window ending on anchor's day.
func (s *reportService) GetWeeklyReport(userID uint, anchor time.Time) (*Report, error) {
	from := startOfDay(anchor).AddDate(0, 0, -6)
	to := from.AddDate(0, 0, 7)

	transactions, err := s.loadRange(userID, from, to)
	if err != nil {
		return nil, err
	}

	report := newReport(from, to, 7)
	for i := range report.Buckets {
		report.Buckets[i].Label = from.AddDate(0, 0, i).Weekday().String()
	}
	for _, tx := range transactions {
		idx := int(tx.Date.Sub(from).Hours()) / 24
		report.add(idx, tx)
	}
	return report, nil
}

// GetMonthlyReport returns week-of-month buckets for the calendar month
// containing anchor. Weeks run from the 1st in fixed 7-day slices, so a month
// has four or five of them.
func (s *reportService) GetMonthlyReport(userID uint, anchor time.Time) (*Report, error) {
	from := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	to := from.AddDate(0, 1, 0)

	days := int(to.Sub(from).Hours() / 24)
	weeks := (days + 6) / 7

	transactions, err := s.loadRange(userID, from, to)
	if err != nil {
		return nil, err
	}

	report := newReport(from, to, weeks)
	for i := range report.Buckets {
		report.Buckets[i].Label = weekLabel(i)
	}
	for _, tx := range transactions {
		report.add((tx.Date.Day()-1)/7, tx)
	}
	return report, nil
}

// GetYearlyReport returns twelve monthly buckets for the calendar year
// containing anchor.
func (s *reportService) GetYearlyReport(userID uint, anchor time.Time) (*Report, error) {
	from := time.Date(anchor.Year(), time.January, 1, 0, 0, 0, 0, anchor.Location())
	to := from.AddDate(1, 0, 0)

	transactions, err := s.loadRange(userID, from, to)
	if err != nil {
		return nil, err
	}

	report := newReport(from, to, 12)
	for i := range report.Buckets {
		report.Buckets[i].Label = time.Month(i + 1).String()
	}
	for _, tx := range transactions {
		report.add(int(tx.Date.Month())-1, tx)
	}
	return report, nil
}

// GetCategoryBreakdown returns per-category totals over [from, to), largest
// first.
func (s *reportService) GetCategoryBreakdown(userID uint, from, to time.Time) ([]CategoryTotal, error) {
	transactions, err := s.loadRange(userID, from, to)
	if err != nil {
		return nil, err
	}

	type key struct {
		category string
		txType   models.TransactionType
	}
	totals := map[key]int64{}
	for _, tx := range transactions {
		totals[key{tx.Category, tx.Type}] += tx.Amount
	}

	breakdown := make([]CategoryTotal, 0, len(totals))
	for k, total := range totals {
		breakdown = append(breakdown, CategoryTotal{
			Category: k.category,
			Type:     k.txType,
			Total:    total,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Total != breakdown[j].Total {
			return breakdown[i].Total > breakdown[j].Total
		}
		return breakdown[i].Category < breakdown[j].Category
	})
	return breakdown, nil
}

func (s *reportService) loadRange(userID uint, from, to time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

func newReport(from, to time.Time, buckets int) *Report {
	return &Report{
		From:    from,
		To:      to,
		Buckets: make([]ReportBucket, buckets),
	}
}

// add accumulates tx into the bucket at idx, ignoring out-of-range indexes.
func (r *Report) add(idx int, tx models.Transaction) {
	if idx < 0 || idx >= len(r.Buckets) {
		return
	}
	switch tx.Type {
	case models.TransactionTypeIncome:
		r.Buckets[idx].Income += tx.Amount
		r.TotalIncome += tx.Amount
	case models.TransactionTypeExpense:
		r.Buckets[idx].Expense += tx.Amount
		r.TotalExpense += tx.Amount
	}
	r.Net = r.TotalIncome - r.TotalExpense
}

// startOfDay returns midnight at the start of t's day.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func weekLabel(i int) string {
	return [...]string{"Week 1", "Week 2", "Week 3", "Week 4", "Week 5"}[i]
}
