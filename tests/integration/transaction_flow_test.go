package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestTransactionFlow_CreateListDelete(t *testing.T) {
	app := setupApp(t)
	access, _, _ := app.registerUser(t, "tx@test.com", "password123")

	// Create a few transactions
	entries := []string{
		`{"type":"income","amount":500000,"category":"Salary","date":"2024-06-01"}`,
		`{"type":"expense","amount":4500,"category":"Food","description":"groceries","date":"2024-06-10"}`,
		`{"type":"expense","amount":150000,"category":"Rent","date":"2024-06-05"}`,
	}
	var lastID float64
	for _, body := range entries {
		rec := app.request("POST", "/api/v1/transactions", body, access)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		lastID = tx["id"].(float64)
	}

	// List newest first
	rec := app.request("GET", "/api/v1/transactions", "", access)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	data := result["data"].([]interface{})
	if len(data) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(data))
	}
	first := data[0].(map[string]interface{})
	if first["category"] != "Food" {
		t.Errorf("expected newest transaction first (Food), got %v", first["category"])
	}

	// Filter by type
	rec = app.request("GET", "/api/v1/transactions?type=expense", "", access)
	result = parseJSON(t, rec)
	if len(result["data"].([]interface{})) != 2 {
		t.Errorf("expected 2 expenses, got %d", len(result["data"].([]interface{})))
	}

	// Filter by date range
	rec = app.request("GET", "/api/v1/transactions?from_date=2024-06-04&to_date=2024-06-06", "", access)
	result = parseJSON(t, rec)
	data = result["data"].([]interface{})
	if len(data) != 1 || data[0].(map[string]interface{})["category"] != "Rent" {
		t.Errorf("expected only the rent transaction in range, got %v", data)
	}

	// Delete one
	rec = app.request("DELETE", fmt.Sprintf("/api/v1/transactions/%.0f", lastID), "", access)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.request("GET", fmt.Sprintf("/api/v1/transactions/%.0f", lastID), "", access)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestTransactionFlow_UserIsolation(t *testing.T) {
	app := setupApp(t)
	alice, _, _ := app.registerUser(t, "alice@test.com", "password123")
	bob, _, _ := app.registerUser(t, "bob@test.com", "password123")

	rec := app.request("POST", "/api/v1/transactions",
		`{"type":"expense","amount":100,"category":"Food"}`, alice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
	}
	txID := parseJSON(t, rec)["transaction"].(map[string]interface{})["id"].(float64)

	// Bob cannot see Alice's transaction
	rec = app.request("GET", fmt.Sprintf("/api/v1/transactions/%.0f", txID), "", bob)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign transaction, got %d", rec.Code)
	}
	rec = app.request("GET", "/api/v1/transactions", "", bob)
	result := parseJSON(t, rec)
	if len(result["data"].([]interface{})) != 0 {
		t.Error("expected empty list for bob")
	}

	// Bob cannot delete it either
	rec = app.request("DELETE", fmt.Sprintf("/api/v1/transactions/%.0f", txID), "", bob)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting foreign transaction, got %d", rec.Code)
	}
}

func TestTransactionFlow_Categories(t *testing.T) {
	app := setupApp(t)
	access, _, _ := app.registerUser(t, "cats@test.com", "password123")

	rec := app.request("GET", "/api/v1/transactions/categories", "", access)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	result := parseJSON(t, rec)
	if len(result["income"].([]interface{})) == 0 || len(result["expense"].([]interface{})) == 0 {
		t.Error("expected non-empty category lists")
	}
}
