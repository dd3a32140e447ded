package escrows

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

// CreateEscrowInput captures the fields required to open an escrow.
type CreateEscrowInput struct {
	BuyerID   uuid.UUID       `json:"buyer_id" validate:"required"`
	SellerID  uuid.UUID       `json:"seller_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	AssetCode string          `json:"asset_code" validate:"required,min=1,max=12"`
	ExpiresAt time.Time       `json:"expires_at" validate:"required"`
}

// CreateEscrowResult pairs the persisted record with the unsigned contract
// invocation the buyer's wallet must sign and submit.
type CreateEscrowResult struct {
	Escrow   *models.Escrow      `json:"escrow"`
	Envelope *stellar.Invocation `json:"envelope"`
}

// LedgerEventInput is a raw on-chain escrow status notification, typically
// delivered through the webhook boundary.
type LedgerEventInput struct {
	EscrowID     uuid.UUID `json:"escrow_id"`
	LedgerStatus string    `json:"status"`
	TxHash       string    `json:"tx_hash"`
}

// ListFilter narrows escrow listings.
type ListFilter struct {
	Status   *enums.EscrowStatus
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
}

// EscrowCreatedEvent is the outbox payload emitted when an escrow is opened.
type EscrowCreatedEvent struct {
	EscrowID  uuid.UUID       `json:"escrow_id"`
	BuyerID   uuid.UUID       `json:"buyer_id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	Amount    decimal.Decimal `json:"amount"`
	AssetCode string          `json:"asset_code"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// EscrowExpiredEvent is the outbox payload emitted for swept escrows.
type EscrowExpiredEvent struct {
	EscrowID  uuid.UUID          `json:"escrow_id"`
	Status    enums.EscrowStatus `json:"status"`
	ExpiredAt time.Time          `json:"expired_at"`
}

// EscrowStatusChangedEvent is the outbox payload emitted on a state change.
type EscrowStatusChangedEvent struct {
	EscrowID   uuid.UUID          `json:"escrow_id"`
	FromStatus enums.EscrowStatus `json:"from_status"`
	ToStatus   enums.EscrowStatus `json:"to_status"`
	TxHash     string             `json:"tx_hash,omitempty"`
}
