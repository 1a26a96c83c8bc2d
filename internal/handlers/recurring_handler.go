package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "gelgid/internal/errors"
	"gelgid/internal/logger"
	"gelgid/internal/models"
	"gelgid/internal/pagination"
	"gelgid/internal/services"
)

// RecurringHandler handles recurring rule requests.
type RecurringHandler struct {
	recurringService services.RecurringServicer
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService}
}

// CreateRuleRequest represents the request payload for creating a recurring rule
type CreateRuleRequest struct {
	Title      string                 `json:"title" binding:"required,max=200"`
	Type       models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount     int64                  `json:"amount" binding:"required,gt=0"`
	Category   string                 `json:"category" binding:"required,max=100"`
	DayOfMonth int                    `json:"day_of_month" binding:"required,min=1,max=31"`
	StartDate  *string                `json:"start_date"`
}

// RuleResponse represents a recurring rule in the response
type RuleResponse struct {
	ID              uint                   `json:"id"`
	UserID          uint                   `json:"user_id"`
	Title           string                 `json:"title"`
	Type            models.TransactionType `json:"type"`
	Amount          int64                  `json:"amount"`
	Category        string                 `json:"category"`
	DayOfMonth      int                    `json:"day_of_month"`
	StartDate       time.Time              `json:"start_date"`
	LastProcessedAt *time.Time             `json:"last_processed_at,omitempty"`
}

// CreateRule handles the creation of a recurring rule
// @Summary     Create a recurring rule
// @Description Create a monthly recurring rule. Instances owed between the start date and now are materialized immediately.
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRuleRequest true "Rule details"
// @Success     201 {object} RuleResponse "Rule created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [post]
func (h *RecurringHandler) CreateRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	startDate := time.Now()
	if req.StartDate != nil && *req.StartDate != "" {
		parsed, parseErr := parseFlexibleTime(*req.StartDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		startDate = parsed
	}

	rule, err := h.recurringService.CreateRule(
		c.Request.Context(),
		userID,
		req.Title,
		req.Type,
		req.Amount,
		req.Category,
		req.DayOfMonth,
		startDate,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// GetUserRules handles listing the user's recurring rules
// @Summary     List recurring rules
// @Description Get a paginated list of the user's recurring rules
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} pagination.PageResponse[RuleResponse] "Recurring rules"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [get]
func (h *RecurringHandler) GetUserRules(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	// Opportunistic catch-up so the list reflects months the periodic pass
	// has not reached yet. Best-effort only.
	if _, err := h.recurringService.ProcessBacklog(c.Request.Context(), userID); err != nil {
		logger.Get().Warnw("backlog pass on rule listing failed",
			"user_id", userID,
			"error", err,
		)
	}

	result, err := h.recurringService.GetUserRules(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRuleByID handles the retrieval of a specific recurring rule
// @Summary     Get recurring rule by ID
// @Description Get a specific recurring rule by ID
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Rule ID"
// @Success     200 {object} RuleResponse "Rule details"
// @Failure     400 {object} ErrorResponse "Invalid rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [get]
func (h *RecurringHandler) GetRuleByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.recurringService.GetRuleByID(userID, ruleID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// UpdateRuleRequest represents the request payload for updating a recurring rule.
type UpdateRuleRequest struct {
	Title      *string `json:"title" binding:"omitempty,max=200"`
	Amount     *int64  `json:"amount" binding:"omitempty,gt=0"`
	Category   *string `json:"category" binding:"omitempty,max=100"`
	DayOfMonth *int    `json:"day_of_month" binding:"omitempty,min=1,max=31"`
}

// UpdateRule handles updating a recurring rule
// @Summary     Update recurring rule
// @Description Update a recurring rule. Already materialized instances keep their original values; only future months pick up the change.
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int               true "Rule ID"
// @Param       request body UpdateRuleRequest true "Fields to update"
// @Success     200 {object} RuleResponse "Updated rule"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [put]
func (h *RecurringHandler) UpdateRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, err := h.recurringService.UpdateRule(userID, ruleID, services.RuleUpdate{
		Title:      req.Title,
		Amount:     req.Amount,
		Category:   req.Category,
		DayOfMonth: req.DayOfMonth,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeleteRule handles deleting a recurring rule
// @Summary     Delete recurring rule
// @Description Delete a recurring rule. Instances it already materialized remain as ordinary transactions.
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Rule ID"
// @Success     204 "Rule deleted"
// @Failure     400 {object} ErrorResponse "Invalid rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [delete]
func (h *RecurringHandler) DeleteRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringService.DeleteRule(userID, ruleID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ProcessBacklog handles an on-demand materialization pass
// @Summary     Process recurring backlog
// @Description Run a materialization pass over the authenticated user's rules within the rolling lookback window and report how many instances were created
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]int "Number of instances created"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/process [post]
func (h *RecurringHandler) ProcessBacklog(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	created, err := h.recurringService.ProcessBacklog(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"created": created})
}
