package models

import "time"

// AssetType represents the kind of asset being tracked
type AssetType string

const (
	AssetTypeBankAccount AssetType = "bank_account"
	AssetTypeRealEstate  AssetType = "real_estate"
	AssetTypeVehicle     AssetType = "vehicle"
	AssetTypeGold        AssetType = "gold"
	AssetTypeStock       AssetType = "stock"
	AssetTypeCrypto      AssetType = "crypto"
	AssetTypeOther       AssetType = "other"
)

// Asset represents something of value the user tracks over time, such as a
// bank account, property, or vehicle. Value is the current value in cents;
// the History ledger records how it changed.
type Asset struct {
	Base
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Name        string    `gorm:"not null" json:"name"`
	Type        AssetType `gorm:"not null" json:"type"`
	Value       int64     `gorm:"type:bigint;not null" json:"value"`
	Description string    `json:"description"`

	History []AssetValue `gorm:"foreignKey:AssetID" json:"history,omitempty"`
}

// AssetValue is one entry in an asset's value-history ledger.
type AssetValue struct {
	Base
	AssetID    uint      `gorm:"not null;index" json:"asset_id"`
	Value      int64     `gorm:"type:bigint;not null" json:"value"`
	Note       string    `json:"note"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`
}
