package stellar

import (
	"context"
	"encoding/json"
	"time"
)

// InvocationRequest describes a contract call for a wallet to sign. The
// backend never holds signing keys, so it hands the caller a structured
// invocation instead of a pre-built transaction envelope.
type InvocationRequest struct {
	ContractID    string `json:"contractId"`
	Method        string `json:"method"`
	Args          []any  `json:"args"`
	SourceAccount string `json:"sourceAccount"`
}

// Invocation is the prepared call returned to the caller, carrying the
// network passphrase the wallet must sign against.
type Invocation struct {
	ContractID        string `json:"contractId"`
	Method            string `json:"method"`
	Args              []any  `json:"args"`
	SourceAccount     string `json:"sourceAccount"`
	NetworkPassphrase string `json:"networkPassphrase"`
}

// SubmitResult reports the terminal state of a submitted transaction.
type SubmitResult struct {
	Hash    string `json:"hash"`
	Status  string `json:"status"`
	Ledger  int64  `json:"ledger,omitempty"`
	Message string `json:"message,omitempty"`
}

// Succeeded reports whether the transaction reached SUCCESS on the ledger.
func (r SubmitResult) Succeeded() bool {
	return r.Status == "SUCCESS"
}

// ContractEvent is a single event emitted by a contract, as returned by the
// RPC getEvents endpoint.
type ContractEvent struct {
	ID         string          `json:"id"`
	ContractID string          `json:"contractId"`
	Ledger     int64           `json:"ledger"`
	LedgerTime time.Time       `json:"ledgerClosedAt"`
	Topics     []string        `json:"topic"`
	Value      json.RawMessage `json:"value"`
	TxHash     string          `json:"txHash"`
}

// EventQuery filters ListContractEvents.
type EventQuery struct {
	ContractIDs []string
	StartLedger int64
	Limit       int
}

// EventPage is one page of contract events plus the cursor for the next poll.
type EventPage struct {
	Events       []ContractEvent
	LatestLedger int64
}

// Gateway is the ledger surface the domain services depend on.
type Gateway interface {
	BuildUnsignedInvocation(ctx context.Context, req InvocationRequest) (*Invocation, error)
	SimulateReadOnlyCall(ctx context.Context, req InvocationRequest) (json.RawMessage, error)
	SubmitSignedEnvelope(ctx context.Context, envelopeXDR string) (*SubmitResult, error)
	ListContractEvents(ctx context.Context, query EventQuery) (*EventPage, error)
	Ping(ctx context.Context) error
}
