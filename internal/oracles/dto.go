package oracles

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/stellovault/stellovault-backend/pkg/enums"
)

// ConfirmEventInput is an oracle's signed attestation of an off-chain event.
type ConfirmEventInput struct {
	OracleAddress string                `json:"oracle_address" validate:"required"`
	EscrowID      uuid.UUID             `json:"escrow_id" validate:"required"`
	EventType     enums.OracleEventType `json:"event_type" validate:"required"`
	Nonce         string                `json:"nonce" validate:"required"`
	Payload       json.RawMessage       `json:"payload,omitempty"`
	Signature     string                `json:"signature" validate:"required"`
}

// FlagDisputeInput marks an escrow as contested.
type FlagDisputeInput struct {
	EscrowID        uuid.UUID `json:"escrow_id" validate:"required"`
	ReporterAddress string    `json:"reporter_address" validate:"required"`
	Reason          string    `json:"reason" validate:"required,min=1,max=2000"`
}

// Metrics summarizes oracle activity over the configured window.
type Metrics struct {
	WindowStart        time.Time                       `json:"window_start"`
	WindowEnd          time.Time                       `json:"window_end"`
	ActiveOracles      int64                           `json:"active_oracles"`
	InactiveOracles    int64                           `json:"inactive_oracles"`
	ConfirmationCounts map[enums.OracleEventType]int64 `json:"confirmation_counts"`
	TotalConfirmations int64                           `json:"total_confirmations"`
	AvgPerActiveOracle float64                         `json:"avg_confirmations_per_active_oracle"`
	EscrowStatusCounts map[enums.EscrowStatus]int64    `json:"escrow_status_counts"`
}

// OracleRegisteredEvent is the outbox payload for oracle registration.
type OracleRegisteredEvent struct {
	OracleID uuid.UUID `json:"oracle_id"`
	Address  string    `json:"address"`
}

// ConfirmationRecordedEvent is the outbox payload for a verified attestation.
type ConfirmationRecordedEvent struct {
	ConfirmationID uuid.UUID             `json:"confirmation_id"`
	OracleID       uuid.UUID             `json:"oracle_id"`
	EscrowID       uuid.UUID             `json:"escrow_id"`
	EventType      enums.OracleEventType `json:"event_type"`
}

// DisputeFlaggedEvent is the outbox payload when an escrow is contested.
type DisputeFlaggedEvent struct {
	DisputeID       uuid.UUID `json:"dispute_id"`
	EscrowID        uuid.UUID `json:"escrow_id"`
	ReporterAddress string    `json:"reporter_address"`
}
