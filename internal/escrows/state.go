package escrows

import (
	"strings"

	"github.com/stellovault/stellovault-backend/pkg/enums"
)

// ledgerStatusMap translates the contract's on-chain status strings into the
// local state machine.
var ledgerStatusMap = map[string]enums.EscrowStatus{
	"PENDING":   enums.EscrowStatusPending,
	"ACTIVE":    enums.EscrowStatusFunded,
	"FUNDED":    enums.EscrowStatusFunded,
	"COMPLETED": enums.EscrowStatusReleased,
	"RELEASED":  enums.EscrowStatusReleased,
	"REFUNDED":  enums.EscrowStatusRefunded,
	"DISPUTED":  enums.EscrowStatusDisputed,
	"CANCELLED": enums.EscrowStatusCancelled,
}

// MapLedgerStatus resolves an on-chain status string to a local status.
func MapLedgerStatus(value string) (enums.EscrowStatus, bool) {
	status, ok := ledgerStatusMap[strings.ToUpper(strings.TrimSpace(value))]
	return status, ok
}

// allowedTransitions is the forward-only escrow state machine. Terminal
// states have no outgoing edges.
var allowedTransitions = map[enums.EscrowStatus][]enums.EscrowStatus{
	enums.EscrowStatusPending: {
		enums.EscrowStatusFunded,
		enums.EscrowStatusCancelled,
		enums.EscrowStatusDisputed,
	},
	enums.EscrowStatusFunded: {
		enums.EscrowStatusReleased,
		enums.EscrowStatusRefunded,
		enums.EscrowStatusDisputed,
		enums.EscrowStatusCancelled,
	},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to enums.EscrowStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
