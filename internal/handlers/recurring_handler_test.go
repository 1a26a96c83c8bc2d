package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "gelgid/internal/errors"
	"gelgid/internal/models"
	"gelgid/internal/pagination"
	"gelgid/internal/services"
)

type mockRecurringService struct {
	createRuleFn         func(ctx context.Context, userID uint, title string, txType models.TransactionType, amount int64, category string, dayOfMonth int, startDate time.Time) (*models.RecurringRule, error)
	getUserRulesFn       func(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringRule], error)
	getRuleByIDFn        func(userID, ruleID uint) (*models.RecurringRule, error)
	updateRuleFn         func(userID, ruleID uint, update services.RuleUpdate) (*models.RecurringRule, error)
	deleteRuleFn         func(userID, ruleID uint) error
	processBacklogFn     func(ctx context.Context, userID uint) (int, error)
	processAllBacklogsFn func(ctx context.Context) (int, error)
}

func (m *mockRecurringService) CreateRule(ctx context.Context, userID uint, title string, txType models.TransactionType, amount int64, category string, dayOfMonth int, startDate time.Time) (*models.RecurringRule, error) {
	if m.createRuleFn != nil {
		return m.createRuleFn(ctx, userID, title, txType, amount, category, dayOfMonth, startDate)
	}
	return &models.RecurringRule{}, nil
}

func (m *mockRecurringService) GetUserRules(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringRule], error) {
	if m.getUserRulesFn != nil {
		return m.getUserRulesFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.RecurringRule{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockRecurringService) GetRuleByID(userID, ruleID uint) (*models.RecurringRule, error) {
	if m.getRuleByIDFn != nil {
		return m.getRuleByIDFn(userID, ruleID)
	}
	return &models.RecurringRule{}, nil
}

func (m *mockRecurringService) UpdateRule(userID, ruleID uint, update services.RuleUpdate) (*models.RecurringRule, error) {
	if m.updateRuleFn != nil {
		return m.updateRuleFn(userID, ruleID, update)
	}
	return &models.RecurringRule{}, nil
}

func (m *mockRecurringService) DeleteRule(userID, ruleID uint) error {
	if m.deleteRuleFn != nil {
		return m.deleteRuleFn(userID, ruleID)
	}
	return nil
}

func (m *mockRecurringService) ProcessBacklog(ctx context.Context, userID uint) (int, error) {
	if m.processBacklogFn != nil {
		return m.processBacklogFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockRecurringService) ProcessAllBacklogs(ctx context.Context) (int, error) {
	if m.processAllBacklogsFn != nil {
		return m.processAllBacklogsFn(ctx)
	}
	return 0, nil
}

func setupRecurringRouter(handler *RecurringHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("/", injectUserID(1))
	auth.POST("/recurring", handler.CreateRule)
	auth.GET("/recurring", handler.GetUserRules)
	auth.POST("/recurring/process", handler.ProcessBacklog)
	auth.GET("/recurring/:id", handler.GetRuleByID)
	auth.PUT("/recurring/:id", handler.UpdateRule)
	auth.DELETE("/recurring/:id", handler.DeleteRule)
	return r
}

func TestRecurringHandler_Create(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		svc := &mockRecurringService{
			createRuleFn: func(_ context.Context, userID uint, title string, txType models.TransactionType, amount int64, category string, dayOfMonth int, startDate time.Time) (*models.RecurringRule, error) {
				return &models.RecurringRule{
					Base:       models.Base{ID: 1},
					UserID:     userID,
					Title:      title,
					Type:       txType,
					Amount:     amount,
					Category:   category,
					DayOfMonth: dayOfMonth,
					StartDate:  startDate,
				}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc))

		rec := doRequest(r, "POST", "/recurring",
			`{"title":"Rent","type":"expense","amount":150000,"category":"Rent","day_of_month":15,"start_date":"2024-01-01"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		rule := result["rule"].(map[string]interface{})
		if rule["day_of_month"].(float64) != 15 {
			t.Errorf("expected day_of_month 15, got %v", rule["day_of_month"])
		}
	})

	t.Run("returns 400 on day out of range", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}))

		rec := doRequest(r, "POST", "/recurring",
			`{"title":"Rent","type":"expense","amount":150000,"category":"Rent","day_of_month":32}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on missing title", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}))

		rec := doRequest(r, "POST", "/recurring",
			`{"type":"expense","amount":150000,"category":"Rent","day_of_month":15}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("defaults start date to now", func(t *testing.T) {
		var gotStart time.Time
		svc := &mockRecurringService{
			createRuleFn: func(_ context.Context, _ uint, _ string, _ models.TransactionType, _ int64, _ string, _ int, startDate time.Time) (*models.RecurringRule, error) {
				gotStart = startDate
				return &models.RecurringRule{}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc))

		rec := doRequest(r, "POST", "/recurring",
			`{"title":"Rent","type":"expense","amount":150000,"category":"Rent","day_of_month":15}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if time.Since(gotStart) > time.Minute {
			t.Errorf("expected start date near now, got %v", gotStart)
		}
	})
}

func TestRecurringHandler_List(t *testing.T) {
	t.Run("runs a backlog pass before listing", func(t *testing.T) {
		var processed bool
		svc := &mockRecurringService{
			processBacklogFn: func(_ context.Context, userID uint) (int, error) {
				if userID != 1 {
					t.Errorf("expected user 1, got %d", userID)
				}
				processed = true
				return 0, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc))

		rec := doRequest(r, "GET", "/recurring", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !processed {
			t.Error("expected a backlog pass before listing")
		}
	})

	t.Run("listing survives a failed pass", func(t *testing.T) {
		svc := &mockRecurringService{
			processBacklogFn: func(_ context.Context, _ uint) (int, error) {
				return 0, apperrors.ErrInternalServer
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc))

		rec := doRequest(r, "GET", "/recurring", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 despite failed pass, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_Update(t *testing.T) {
	t.Run("forwards partial update", func(t *testing.T) {
		var gotUpdate services.RuleUpdate
		svc := &mockRecurringService{
			updateRuleFn: func(_, _ uint, update services.RuleUpdate) (*models.RecurringRule, error) {
				gotUpdate = update
				return &models.RecurringRule{}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc))

		rec := doRequest(r, "PUT", "/recurring/3", `{"amount":200000}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotUpdate.Amount == nil || *gotUpdate.Amount != 200000 {
			t.Error("expected amount in update")
		}
		if gotUpdate.Title != nil || gotUpdate.DayOfMonth != nil {
			t.Error("expected untouched fields to stay nil")
		}
	})

	t.Run("returns 404 for foreign rule", func(t *testing.T) {
		svc := &mockRecurringService{
			updateRuleFn: func(_, _ uint, _ services.RuleUpdate) (*models.RecurringRule, error) {
				return nil, apperrors.ErrRecurringRuleNotFound
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc))

		rec := doRequest(r, "PUT", "/recurring/3", `{"amount":200000}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid day", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}))

		rec := doRequest(r, "PUT", "/recurring/3", `{"day_of_month":0}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_Process(t *testing.T) {
	t.Run("reports created count", func(t *testing.T) {
		svc := &mockRecurringService{
			processBacklogFn: func(_ context.Context, userID uint) (int, error) {
				if userID != 1 {
					t.Errorf("expected user 1, got %d", userID)
				}
				return 3, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc))

		rec := doRequest(r, "POST", "/recurring/process", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["created"].(float64) != 3 {
			t.Errorf("expected created 3, got %v", result["created"])
		}
	})

	t.Run("returns 500 on failure", func(t *testing.T) {
		svc := &mockRecurringService{
			processBacklogFn: func(_ context.Context, _ uint) (int, error) {
				return 0, apperrors.ErrInternalServer
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc))

		rec := doRequest(r, "POST", "/recurring/process", "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_Delete(t *testing.T) {
	svc := &mockRecurringService{
		deleteRuleFn: func(_, ruleID uint) error {
			if ruleID == 999 {
				return apperrors.ErrRecurringRuleNotFound
			}
			return nil
		},
	}
	r := setupRecurringRouter(NewRecurringHandler(svc))

	rec := doRequest(r, "DELETE", "/recurring/3", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(r, "DELETE", "/recurring/999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
