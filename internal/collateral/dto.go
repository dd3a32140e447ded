package collateral

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stellovault/stellovault-backend/pkg/enums"
)

// CreateCollateralInput tokenizes a real-world asset. Metadata is hashed
// server-side; the hash is the global dedup key.
type CreateCollateralInput struct {
	EscrowID  *uuid.UUID      `json:"escrow_id,omitempty"`
	AssetCode string          `json:"asset_code" validate:"required,min=1,max=12"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Metadata  json.RawMessage `json:"metadata" validate:"required"`
}

// ListFilter narrows collateral listings.
type ListFilter struct {
	Status   enums.CollateralStatus
	EscrowID *uuid.UUID
}

// CollateralCreatedEvent is the outbox payload for a newly tokenized asset.
type CollateralCreatedEvent struct {
	CollateralID uuid.UUID       `json:"collateral_id"`
	AssetCode    string          `json:"asset_code"`
	Amount       decimal.Decimal `json:"amount"`
	MetadataHash string          `json:"metadata_hash"`
}

// CollateralDepositedEvent is emitted when the on-chain deposit is observed.
type CollateralDepositedEvent struct {
	CollateralID uuid.UUID `json:"collateral_id"`
	MetadataHash string    `json:"metadata_hash"`
	TxHash       string    `json:"tx_hash,omitempty"`
	Ledger       int64     `json:"ledger,omitempty"`
	DepositedAt  time.Time `json:"deposited_at"`
}
