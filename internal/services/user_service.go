package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "gelgid/internal/errors"
	"gelgid/internal/models"
)

// userService handles user-related business logic.
type userService struct {
	db     *gorm.DB
	google GoogleVerifier
}

// NewUserService creates a new UserServicer. The Google verifier may be nil
// when Google sign-in is not configured.
func NewUserService(db *gorm.DB, google GoogleVerifier) UserServicer {
	return &userService{db: db, google: google}
}

// CreateUser registers a new user
func (s *userService) CreateUser(email, password, name string) (*models.User, error) {
	// Validate input
	if email == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}

	// Check if user with email exists
	var count int64
	s.db.Model(&models.User{}).Where("email = ?", strings.ToLower(email)).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Create user
	user := &models.User{
		Email:    strings.ToLower(email),
		Password: string(hashedPassword),
		Name:     name,
		IsActive: true,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ? AND is_active = ?", strings.ToLower(email), true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// VerifyPassword checks if the provided password matches the stored hash
func (s *userService) VerifyPassword(user *models.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	return err == nil
}

// AttemptLogin verifies credentials and records the login time. Google-only
// accounts have no password and cannot log in this way.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Password == "" {
		return nil, apperrors.ErrNoPassword
	}
	if !s.VerifyPassword(user, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(user).Update("last_login_at", now).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// LoginWithGoogle signs a user in with either an ID token credential or an
// OAuth authorization code. A new account is provisioned on first sign-in;
// an existing account with the same email is linked by its Google subject.
func (s *userService) LoginWithGoogle(ctx context.Context, credential, code string) (*models.User, error) {
	if s.google == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "google sign-in is not configured")
	}

	var (
		identity *GoogleIdentity
		err      error
	)
	switch {
	case credential != "":
		identity, err = s.google.VerifyCredential(ctx, credential)
	case code != "":
		identity, err = s.google.ExchangeCode(ctx, code)
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "credential or code is required")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidGoogleToken, err)
	}

	now := time.Now()

	var user models.User
	err = s.db.Where("google_subject = ?", identity.Subject).First(&user).Error
	switch {
	case err == nil:
		// Known Google account.
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Link by email, or provision a new account.
		err = s.db.Where("email = ?", strings.ToLower(identity.Email)).First(&user).Error
		switch {
		case err == nil:
			user.GoogleSubject = identity.Subject
			if updateErr := s.db.Model(&user).Update("google_subject", identity.Subject).Error; updateErr != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, updateErr)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email:         strings.ToLower(identity.Email),
				Name:          identity.Name,
				GoogleSubject: identity.Subject,
				IsActive:      true,
			}
			if createErr := s.db.Create(&user).Error; createErr != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, createErr)
			}
		default:
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !user.IsActive {
		return nil, apperrors.ErrUnauthorized
	}

	user.LastLoginAt = &now
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &user, nil
}

// StoreRefreshTokenHash persists the hash of the user's current refresh token.
func (s *userService) StoreRefreshTokenHash(userID uint, tokenHash string) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("refresh_token_hash", tokenHash)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// GetRefreshTokenHash returns the stored refresh token hash for the user.
func (s *userService) GetRefreshTokenHash(userID uint) (string, error) {
	var user models.User
	if err := s.db.Select("refresh_token_hash").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user.RefreshTokenHash, nil
}

// UpdateProfile updates the user's display name.
func (s *userService) UpdateProfile(userID uint, name string) (*models.User, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	if err := s.db.Model(user).Update("name", name).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

// ChangePassword verifies the current password and replaces it with a new one.
func (s *userService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	if newPassword == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "new password is required")
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if user.Password == "" {
		return apperrors.ErrNoPassword
	}
	if !s.VerifyPassword(user, currentPassword) {
		return apperrors.ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Changing the password also invalidates the current refresh token.
	updates := map[string]interface{}{
		"password":           string(hashedPassword),
		"refresh_token_hash": "",
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteAccount removes the user and all their data. Password-holding accounts
// must confirm with their password; Google-only accounts pass it empty.
func (s *userService) DeleteAccount(userID uint, password string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if user.Password != "" && !s.VerifyPassword(user, password) {
		return apperrors.ErrInvalidCredentials
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		userScoped := []interface{}{
			&models.Transaction{},
			&models.RecurringRule{},
		}
		for _, model := range userScoped {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}

		var assetIDs []uint
		if err := tx.Model(&models.Asset{}).Where("user_id = ?", userID).Pluck("id", &assetIDs).Error; err != nil {
			return err
		}
		if len(assetIDs) > 0 {
			if err := tx.Where("asset_id IN ?", assetIDs).Delete(&models.AssetValue{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", userID).Delete(&models.Asset{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&models.User{}, userID).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
