package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "gelgid/internal/errors"
	"gelgid/internal/models"
	"gelgid/internal/pagination"
)

// assetService handles asset-related business logic.
type assetService struct {
	db *gorm.DB
}

// NewAssetService creates a new AssetServicer.
func NewAssetService(db *gorm.DB) AssetServicer {
	return &assetService{db: db}
}

// CreateAsset records a new asset with its initial value (in cents). The
// initial value also becomes the first entry in the asset's value history.
func (s *assetService) CreateAsset(userID uint, name string, assetType models.AssetType, value int64, note string) (*models.Asset, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}
	if value < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "value cannot be negative")
	}

	asset := &models.Asset{
		UserID: userID,
		Name:   name,
		Type:   assetType,
		Value:  value,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(asset).Error; err != nil {
			return err
		}
		entry := &models.AssetValue{
			AssetID:    asset.ID,
			Value:      value,
			Note:       note,
			RecordedAt: time.Now(),
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return asset, nil
}

// GetUserAssets retrieves a paginated list of the user's assets.
func (s *assetService) GetUserAssets(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error) {
	page.Defaults()

	base := s.db.Model(&models.Asset{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var assets []models.Asset
	if err := base.Scopes(pagination.Paginate(page)).
		Order("name ASC").
		Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(assets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAssetByID retrieves a single asset owned by the user.
func (s *assetService) GetAssetByID(userID, assetID uint) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.Where("id = ? AND user_id = ?", assetID, userID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &asset, nil
}

// UpdateAsset renames an asset. Value changes go through UpdateAssetValue so
// the history stays complete.
func (s *assetService) UpdateAsset(userID, assetID uint, name string) (*models.Asset, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}

	asset, err := s.GetAssetByID(userID, assetID)
	if err != nil {
		return nil, err
	}

	asset.Name = name
	if err := s.db.Model(asset).Update("name", name).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return asset, nil
}

// UpdateAssetValue sets the asset's current value and appends an entry to its
// value history.
func (s *assetService) UpdateAssetValue(userID, assetID uint, value int64, note string) (*models.Asset, error) {
	if value < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "value cannot be negative")
	}

	asset, err := s.GetAssetByID(userID, assetID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(asset).Update("value", value).Error; err != nil {
			return err
		}
		entry := &models.AssetValue{
			AssetID:    asset.ID,
			Value:      value,
			Note:       note,
			RecordedAt: time.Now(),
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	asset.Value = value
	return asset, nil
}

// DeleteAsset removes an asset together with its value history.
func (s *assetService) DeleteAsset(userID, assetID uint) error {
	asset, err := s.GetAssetByID(userID, assetID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("asset_id = ?", asset.ID).Delete(&models.AssetValue{}).Error; err != nil {
			return err
		}
		return tx.Delete(asset).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetAssetHistory retrieves the asset's value history, newest first.
func (s *assetService) GetAssetHistory(userID, assetID uint, page pagination.PageRequest) (*pagination.PageResponse[models.AssetValue], error) {
	asset, err := s.GetAssetByID(userID, assetID)
	if err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.AssetValue{}).Where("asset_id = ?", asset.ID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var history []models.AssetValue
	if err := base.Scopes(pagination.Paginate(page)).
		Order("recorded_at DESC").
		Find(&history).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(history, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetNetWorth sums the current values of all the user's assets.
func (s *assetService) GetNetWorth(userID uint) (int64, error) {
	var total int64
	err := s.db.Model(&models.Asset{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(value), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return total, nil
}
