package oracles

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/stellovault/stellovault-backend/pkg/enums"
)

// CanonicalMessage builds the byte string an oracle signs. The payload is
// round-tripped through a map so json.Marshal emits object keys in sorted
// order; both sides of the signature must agree on this byte-for-byte.
func CanonicalMessage(escrowID uuid.UUID, eventType enums.OracleEventType, nonce string, payload json.RawMessage) ([]byte, error) {
	body := map[string]any{
		"escrow_id":  escrowID.String(),
		"event_type": string(eventType),
		"nonce":      nonce,
	}
	if len(payload) > 0 {
		var decoded any
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, fmt.Errorf("payload is not valid JSON: %w", err)
		}
		body["payload"] = decoded
	}
	message, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("building canonical message: %w", err)
	}
	return message, nil
}
