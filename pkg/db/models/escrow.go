package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stellovault/stellovault-backend/pkg/enums"
)

// Escrow is a ledger-mediated holding arrangement between a buyer and a
// seller. Rows are never deleted once funded; status only moves forward along
// the state machine.
type Escrow struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID  uuid.UUID          `gorm:"column:seller_id;type:uuid;not null"`
	Amount    decimal.Decimal    `gorm:"column:amount;type:numeric(30,9);not null"`
	AssetCode string             `gorm:"column:asset_code;not null"`
	Status    enums.EscrowStatus `gorm:"column:status;type:escrow_status;not null;default:'pending'"`
	ExpiresAt time.Time          `gorm:"column:expires_at;not null"`
	TxHash    *string            `gorm:"column:tx_hash"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
