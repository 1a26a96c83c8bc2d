package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "gelgid/internal/errors"
	"gelgid/internal/models"
	"gelgid/internal/services"
)

// ReportHandler handles report requests.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// parseAnchor reads the optional ?date= query parameter, defaulting to now.
func parseAnchor(c *gin.Context) (time.Time, error) {
	v := c.Query("date")
	if v == "" {
		return time.Now(), nil
	}
	t, err := parseFlexibleTime(v)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date, use RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}

// GetWeeklyReport returns daily totals for one week
// @Summary     Weekly report
// @Description Get daily income/expense buckets for the seven days ending on the given date (default: today)
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       date query string false "Anchor date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} services.Report "Weekly report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/weekly [get]
func (h *ReportHandler) GetWeeklyReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	anchor, err := parseAnchor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetWeeklyReport(userID, anchor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetMonthlyReport returns weekly totals for one month
// @Summary     Monthly report
// @Description Get week-of-month income/expense buckets for the calendar month containing the given date (default: today)
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       date query string false "Anchor date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} services.Report "Monthly report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/monthly [get]
func (h *ReportHandler) GetMonthlyReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	anchor, err := parseAnchor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetMonthlyReport(userID, anchor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetYearlyReport returns monthly totals for one year
// @Summary     Yearly report
// @Description Get twelve monthly income/expense buckets for the calendar year containing the given date (default: today)
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       date query string false "Anchor date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} services.Report "Yearly report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/yearly [get]
func (h *ReportHandler) GetYearlyReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	anchor, err := parseAnchor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetYearlyReport(userID, anchor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetCategoryBreakdown returns per-category totals
// @Summary     Category breakdown
// @Description Get per-category income/expense totals over a date range (default: the current month)
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Range start, inclusive (RFC3339 or YYYY-MM-DD)"
// @Param       to   query string false "Range end, exclusive (RFC3339 or YYYY-MM-DD)"
// @Param       type query string false "Restrict to one transaction type (income or expense)"
// @Success     200 {object} []services.CategoryTotal "Category totals, largest first"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/categories [get]
func (h *ReportHandler) GetCategoryBreakdown(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	if v := c.Query("from"); v != "" {
		from, err = parseFlexibleTime(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from, use RFC3339 or YYYY-MM-DD"))
			return
		}
	}
	if v := c.Query("to"); v != "" {
		to, err = parseFlexibleTime(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to, use RFC3339 or YYYY-MM-DD"))
			return
		}
	}
	if !to.After(from) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "to must be after from"))
		return
	}

	var typeFilter *models.TransactionType
	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(v)
		if txType != models.TransactionTypeIncome && txType != models.TransactionTypeExpense {
			respondWithError(c, apperrors.ErrInvalidTransactionType)
			return
		}
		typeFilter = &txType
	}

	breakdown, err := h.reportService.GetCategoryBreakdown(userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if typeFilter != nil {
		filtered := breakdown[:0]
		for _, entry := range breakdown {
			if entry.Type == *typeFilter {
				filtered = append(filtered, entry)
			}
		}
		breakdown = filtered
	}

	c.JSON(http.StatusOK, gin.H{"categories": breakdown})
}
