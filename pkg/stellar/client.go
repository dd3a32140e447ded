package stellar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/stellovault/stellovault-backend/pkg/config"
	"github.com/stellovault/stellovault-backend/pkg/logger"
)

// Client talks JSON-RPC to a Soroban RPC endpoint.
type Client struct {
	httpClient *http.Client
	rpcURL     string
	cfg        config.StellarConfig
	logg       *logger.Logger
	nextID     atomic.Int64
}

// NewClient builds a ledger gateway from configuration.
func NewClient(cfg config.StellarConfig, logg *logger.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("stellar rpc url is required")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		rpcURL:     cfg.RPCURL,
		cfg:        cfg,
		logg:       logg,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      strconv.FormatInt(c.nextID.Add(1), 10),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encoding rpc request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calling %s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// BuildUnsignedInvocation prepares a contract call for the caller's wallet to
// sign. The backend holds no signing keys, so this never produces a signed
// envelope.
func (c *Client) BuildUnsignedInvocation(ctx context.Context, req InvocationRequest) (*Invocation, error) {
	if req.ContractID == "" {
		return nil, fmt.Errorf("contract id is required")
	}
	if req.Method == "" {
		return nil, fmt.Errorf("contract method is required")
	}
	if !IsValidAccountID(req.SourceAccount) {
		return nil, fmt.Errorf("source account %q is not a valid account id", req.SourceAccount)
	}
	return &Invocation{
		ContractID:        req.ContractID,
		Method:            req.Method,
		Args:              req.Args,
		SourceAccount:     req.SourceAccount,
		NetworkPassphrase: c.cfg.NetworkPassphrase,
	}, nil
}

// SimulateReadOnlyCall executes a contract call without submitting a
// transaction and returns the raw result value.
func (c *Client) SimulateReadOnlyCall(ctx context.Context, req InvocationRequest) (json.RawMessage, error) {
	if req.ContractID == "" {
		return nil, fmt.Errorf("contract id is required")
	}
	params := map[string]any{
		"contractId": req.ContractID,
		"method":     req.Method,
		"args":       req.Args,
	}
	var result struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := c.call(ctx, "simulateTransaction", params, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("simulation failed: %s", result.Error)
	}
	return result.Result, nil
}

type sendTransactionResult struct {
	Hash         string `json:"hash"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorResultXdr,omitempty"`
}

type getTransactionResult struct {
	Status string `json:"status"`
	Ledger int64  `json:"ledger"`
}

// SubmitSignedEnvelope submits a signed transaction envelope and polls until
// the network reports a terminal status or the attempt budget runs out.
func (c *Client) SubmitSignedEnvelope(ctx context.Context, envelopeXDR string) (*SubmitResult, error) {
	if envelopeXDR == "" {
		return nil, fmt.Errorf("transaction envelope is required")
	}

	var sent sendTransactionResult
	if err := c.call(ctx, "sendTransaction", map[string]any{"transaction": envelopeXDR}, &sent); err != nil {
		return nil, err
	}
	if sent.Status == "ERROR" {
		return &SubmitResult{Hash: sent.Hash, Status: "FAILED", Message: sent.ErrorMessage}, nil
	}

	maxAttempts := c.cfg.SubmitMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	pollInterval := c.cfg.SubmitPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	var final SubmitResult
	backoff := retry.WithMaxRetries(uint64(maxAttempts), retry.NewConstant(pollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var tx getTransactionResult
		if err := c.call(ctx, "getTransaction", map[string]any{"hash": sent.Hash}, &tx); err != nil {
			return retry.RetryableError(err)
		}
		switch tx.Status {
		case "SUCCESS":
			final = SubmitResult{Hash: sent.Hash, Status: "SUCCESS", Ledger: tx.Ledger}
			return nil
		case "FAILED":
			final = SubmitResult{Hash: sent.Hash, Status: "FAILED", Ledger: tx.Ledger}
			return nil
		default:
			// NOT_FOUND / PENDING: not yet included in a ledger.
			return retry.RetryableError(fmt.Errorf("transaction %s still %s", sent.Hash, tx.Status))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("transaction %s did not finalize: %w", sent.Hash, err)
	}
	if c.logg != nil {
		logCtx := c.logg.WithField(ctx, "tx_hash", final.Hash)
		c.logg.Info(logCtx, "ledger transaction finalized")
	}
	return &final, nil
}

type getEventsResult struct {
	Events []struct {
		ID             string          `json:"id"`
		ContractID     string          `json:"contractId"`
		Ledger         int64           `json:"ledger"`
		LedgerClosedAt time.Time       `json:"ledgerClosedAt"`
		Topic          []string        `json:"topic"`
		Value          json.RawMessage `json:"value"`
		TxHash         string          `json:"txHash"`
	} `json:"events"`
	LatestLedger int64 `json:"latestLedger"`
}

// ListContractEvents pages through events emitted by the given contracts
// starting at query.StartLedger.
func (c *Client) ListContractEvents(ctx context.Context, query EventQuery) (*EventPage, error) {
	if len(query.ContractIDs) == 0 {
		return nil, fmt.Errorf("at least one contract id is required")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	params := map[string]any{
		"startLedger": query.StartLedger,
		"filters": []map[string]any{
			{"type": "contract", "contractIds": query.ContractIDs},
		},
		"pagination": map[string]any{"limit": limit},
	}
	var result getEventsResult
	if err := c.call(ctx, "getEvents", params, &result); err != nil {
		return nil, err
	}
	page := &EventPage{LatestLedger: result.LatestLedger}
	for _, ev := range result.Events {
		page.Events = append(page.Events, ContractEvent{
			ID:         ev.ID,
			ContractID: ev.ContractID,
			Ledger:     ev.Ledger,
			LedgerTime: ev.LedgerClosedAt,
			Topics:     ev.Topic,
			Value:      ev.Value,
			TxHash:     ev.TxHash,
		})
	}
	return page, nil
}

// Ping checks RPC node health.
func (c *Client) Ping(ctx context.Context) error {
	var result struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, "getHealth", nil, &result); err != nil {
		return err
	}
	if result.Status != "healthy" {
		return fmt.Errorf("rpc node unhealthy: %s", result.Status)
	}
	return nil
}
