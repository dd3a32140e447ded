package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies which ledger account triggered the event, when known.
type ActorRef struct {
	StellarAddress string `json:"stellarAddress"`
	Role           string `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
