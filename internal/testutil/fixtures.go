package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gelgid/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     fmt.Sprintf("Test User %d", nextID()),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestGoogleUser creates a user linked to a Google account with no password.
func CreateTestGoogleUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	n := nextID()
	user := &models.User{
		Email:         fmt.Sprintf("google%d@test.com", n),
		Name:          fmt.Sprintf("Google User %d", n),
		GoogleSubject: fmt.Sprintf("google-sub-%d", n),
		IsActive:      true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test google user: %v", err)
	}
	return user
}

// CreateTestTransaction creates a transaction of the given type and amount (in cents).
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID uint, txType models.TransactionType, amount int64) *models.Transaction {
	t.Helper()
	return CreateTestTransactionOn(t, db, userID, txType, amount, time.Now())
}

// CreateTestTransactionOn creates a transaction dated at the given time.
func CreateTestTransactionOn(t *testing.T, db *gorm.DB, userID uint, txType models.TransactionType, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Category:    "Other",
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Date:        date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRecurringRule creates a monthly recurring rule for the given day.
func CreateTestRecurringRule(t *testing.T, db *gorm.DB, userID uint, dayOfMonth int, startDate time.Time) *models.RecurringRule {
	t.Helper()

	rule := &models.RecurringRule{
		UserID:     userID,
		Title:      fmt.Sprintf("Test Rule %d", nextID()),
		Type:       models.TransactionTypeExpense,
		Amount:     150000, // $1500.00
		Category:   "Rent",
		DayOfMonth: dayOfMonth,
		StartDate:  startDate,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test recurring rule: %v", err)
	}
	return rule
}

// CreateTestAsset creates an asset with the given value (in cents).
func CreateTestAsset(t *testing.T, db *gorm.DB, userID uint, assetType models.AssetType, value int64) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		UserID: userID,
		Name:   fmt.Sprintf("Test Asset %d", nextID()),
		Type:   assetType,
		Value:  value,
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}
