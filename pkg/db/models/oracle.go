package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/stellovault/stellovault-backend/pkg/enums"
)

// Oracle is a registered external attester identified by its Stellar account
// address. Registration is idempotent on address; deactivation is soft so a
// returning oracle keeps its confirmation history.
type Oracle struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Address       string     `gorm:"column:address;not null;uniqueIndex:uq_oracles_address"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true"`
	DeactivatedAt *time.Time `gorm:"column:deactivated_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// OracleConfirmation records one verified attestation. The
// (oracle, escrow, event type) tuple is unique so replayed submissions are
// rejected loudly instead of silently deduplicated.
type OracleConfirmation struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OracleID  uuid.UUID             `gorm:"column:oracle_id;type:uuid;not null;uniqueIndex:uq_confirmations_oracle_escrow_event"`
	EscrowID  uuid.UUID             `gorm:"column:escrow_id;type:uuid;not null;uniqueIndex:uq_confirmations_oracle_escrow_event"`
	EventType enums.OracleEventType `gorm:"column:event_type;type:oracle_event_type;not null;uniqueIndex:uq_confirmations_oracle_escrow_event"`
	Signature string                `gorm:"column:signature;not null"`
	Payload   json.RawMessage       `gorm:"column:payload;type:jsonb"`
	Nonce     string                `gorm:"column:nonce;not null"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// Dispute is an immutable record of an escrow being flagged. At most one
// dispute flips the owning escrow to disputed.
type Dispute struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EscrowID        uuid.UUID `gorm:"column:escrow_id;type:uuid;not null;index"`
	ReporterAddress string    `gorm:"column:reporter_address;not null"`
	Reason          string    `gorm:"column:reason;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OracleRateLimit is a per-oracle, per-minute submission counter. Rows are
// created/incremented atomically with the confirmation insert.
type OracleRateLimit struct {
	OracleID    uuid.UUID `gorm:"column:oracle_id;type:uuid;primaryKey"`
	WindowStart time.Time `gorm:"column:window_start;primaryKey"`
	Count       int       `gorm:"column:count;not null;default:0"`
}
