package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stellovault/stellovault-backend/pkg/enums"
)

// CollateralRecord mirrors a tokenized real-world asset ahead of its on-chain
// deposit confirmation. MetadataHash is content-derived and unique: the same
// asset must not be tokenized twice.
type CollateralRecord struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EscrowID     *uuid.UUID             `gorm:"column:escrow_id;type:uuid"`
	AssetCode    string                 `gorm:"column:asset_code;not null"`
	Amount       decimal.Decimal        `gorm:"column:amount;type:numeric(30,9);not null"`
	MetadataHash string                 `gorm:"column:metadata_hash;not null;uniqueIndex:uq_collateral_metadata_hash"`
	Status       enums.CollateralStatus `gorm:"column:status;type:collateral_status;not null;default:'pending'"`
	DepositedAt  *time.Time             `gorm:"column:deposited_at"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
