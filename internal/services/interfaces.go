package services

import (
	"context"
	"time"

	"gelgid/internal/models"
	"gelgid/internal/pagination"
)

// GoogleIdentity is the subset of a verified Google ID token the auth flow needs.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier verifies Google sign-in credentials. Implemented against
// Google's tokeninfo/OAuth endpoints in production and faked in tests.
type GoogleVerifier interface {
	VerifyCredential(ctx context.Context, credential string) (*GoogleIdentity, error)
	ExchangeCode(ctx context.Context, code string) (*GoogleIdentity, error)
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, name string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	LoginWithGoogle(ctx context.Context, credential, code string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
	UpdateProfile(userID uint, name string) (*models.User, error)
	ChangePassword(userID uint, currentPassword, newPassword string) error
	DeleteAccount(userID uint, password string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Type      *models.TransactionType
	Category  *string
	MinAmount *int64
	MaxAmount *int64
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID uint, txType models.TransactionType, amount int64, category, description string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
}

// RuleUpdate holds the optional fields of a recurring rule update.
type RuleUpdate struct {
	Title      *string
	Amount     *int64
	Category   *string
	DayOfMonth *int
}

// RecurringServicer defines the contract for recurring rule business logic.
type RecurringServicer interface {
	CreateRule(ctx context.Context, userID uint, title string, txType models.TransactionType, amount int64, category string, dayOfMonth int, startDate time.Time) (*models.RecurringRule, error)
	GetUserRules(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringRule], error)
	GetRuleByID(userID, ruleID uint) (*models.RecurringRule, error)
	UpdateRule(userID, ruleID uint, update RuleUpdate) (*models.RecurringRule, error)
	DeleteRule(userID, ruleID uint) error
	ProcessBacklog(ctx context.Context, userID uint) (int, error)
	ProcessAllBacklogs(ctx context.Context) (int, error)
}

// AssetServicer defines the contract for asset-related business logic.
type AssetServicer interface {
	CreateAsset(userID uint, name string, assetType models.AssetType, value int64, note string) (*models.Asset, error)
	GetUserAssets(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error)
	GetAssetByID(userID, assetID uint) (*models.Asset, error)
	UpdateAsset(userID, assetID uint, name string) (*models.Asset, error)
	UpdateAssetValue(userID, assetID uint, value int64, note string) (*models.Asset, error)
	DeleteAsset(userID, assetID uint) error
	GetAssetHistory(userID, assetID uint, page pagination.PageRequest) (*pagination.PageResponse[models.AssetValue], error)
	GetNetWorth(userID uint) (int64, error)
}

// ReportBucket is one time slice of a report with income and expense totals in cents.
type ReportBucket struct {
	Label   string `json:"label"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
}

// Report aggregates transactions into ordered time buckets.
type Report struct {
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	Buckets      []ReportBucket `json:"buckets"`
	TotalIncome  int64          `json:"total_income"`
	TotalExpense int64          `json:"total_expense"`
	Net          int64          `json:"net"`
}

// CategoryTotal is the aggregated amount for a single category.
type CategoryTotal struct {
	Category string                 `json:"category"`
	Type     models.TransactionType `json:"type"`
	Total    int64                  `json:"total"`
}

// ReportServicer defines the contract for report aggregation.
type ReportServicer interface {
	GetWeeklyReport(userID uint, anchor time.Time) (*Report, error)
	GetMonthlyReport(userID uint, anchor time.Time) (*Report, error)
	GetYearlyReport(userID uint, anchor time.Time) (*Report, error)
	GetCategoryBreakdown(userID uint, from, to time.Time) ([]CategoryTotal, error)
}
