package stellar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stellovault/stellovault-backend/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(config.StellarConfig{
		RPCURL:             server.URL,
		NetworkPassphrase:  "Test SDF Network ; September 2015",
		SubmitMaxAttempts:  3,
		SubmitPollInterval: time.Millisecond,
		HTTPTimeout:        time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func rpcReply(t *testing.T, w http.ResponseWriter, id string, result any) {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  json.RawMessage(raw),
	}))
}

func decodeRPC(t *testing.T, r *http.Request) (string, string, map[string]any) {
	t.Helper()
	var req struct {
		ID     string         `json:"id"`
		Method string         `json:"method"`
		Params map[string]any `json:"params"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req.ID, req.Method, req.Params
}

func TestSubmitSignedEnvelopePollsToSuccess(t *testing.T) {
	var getTxCalls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id, method, params := decodeRPC(t, r)
		switch method {
		case "sendTransaction":
			require.Equal(t, "signed-xdr", params["transaction"])
			rpcReply(t, w, id, map[string]any{"hash": "txhash1", "status": "PENDING"})
		case "getTransaction":
			getTxCalls++
			if getTxCalls < 2 {
				rpcReply(t, w, id, map[string]any{"status": "NOT_FOUND"})
				return
			}
			rpcReply(t, w, id, map[string]any{"status": "SUCCESS", "ledger": 1234})
		default:
			t.Fatalf("unexpected method %s", method)
		}
	})

	result, err := client.SubmitSignedEnvelope(context.Background(), "signed-xdr")
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	require.Equal(t, "txhash1", result.Hash)
	require.Equal(t, int64(1234), result.Ledger)
	require.Equal(t, 2, getTxCalls)
}

func TestSubmitSignedEnvelopeReportsFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id, method, _ := decodeRPC(t, r)
		switch method {
		case "sendTransaction":
			rpcReply(t, w, id, map[string]any{"hash": "txhash2", "status": "PENDING"})
		case "getTransaction":
			rpcReply(t, w, id, map[string]any{"status": "FAILED", "ledger": 99})
		default:
			t.Fatalf("unexpected method %s", method)
		}
	})

	result, err := client.SubmitSignedEnvelope(context.Background(), "signed-xdr")
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	require.Equal(t, "FAILED", result.Status)
}

func TestSubmitSignedEnvelopeGivesUpAfterBudget(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id, method, _ := decodeRPC(t, r)
		switch method {
		case "sendTransaction":
			rpcReply(t, w, id, map[string]any{"hash": "txhash3", "status": "PENDING"})
		case "getTransaction":
			rpcReply(t, w, id, map[string]any{"status": "NOT_FOUND"})
		default:
			t.Fatalf("unexpected method %s", method)
		}
	})

	_, err := client.SubmitSignedEnvelope(context.Background(), "signed-xdr")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not finalize")
}

func TestSubmitSignedEnvelopeRejectedUpfront(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id, method, _ := decodeRPC(t, r)
		require.Equal(t, "sendTransaction", method)
		rpcReply(t, w, id, map[string]any{"hash": "txhash4", "status": "ERROR", "errorResultXdr": "tx_bad_seq"})
	})

	result, err := client.SubmitSignedEnvelope(context.Background(), "signed-xdr")
	require.NoError(t, err)
	require.Equal(t, "FAILED", result.Status)
	require.Equal(t, "tx_bad_seq", result.Message)
}

func TestListContractEvents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id, method, params := decodeRPC(t, r)
		require.Equal(t, "getEvents", method)
		require.EqualValues(t, 500, params["startLedger"])
		rpcReply(t, w, id, map[string]any{
			"events": []map[string]any{
				{
					"id":             "0001",
					"contractId":     "CCOLLATERAL",
					"ledger":         501,
					"ledgerClosedAt": "2025-03-01T10:00:00Z",
					"topic":          []string{"deposit"},
					"value":          map[string]any{"amount": "100"},
					"txHash":         "abc",
				},
			},
			"latestLedger": 510,
		})
	})

	page, err := client.ListContractEvents(context.Background(), EventQuery{
		ContractIDs: []string{"CCOLLATERAL"},
		StartLedger: 500,
	})
	require.NoError(t, err)
	require.Equal(t, int64(510), page.LatestLedger)
	require.Len(t, page.Events, 1)
	require.Equal(t, "CCOLLATERAL", page.Events[0].ContractID)
	require.Equal(t, []string{"deposit"}, page.Events[0].Topics)
}

func TestBuildUnsignedInvocationValidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no rpc call expected")
	})

	_, err := client.BuildUnsignedInvocation(context.Background(), InvocationRequest{
		Method:        "release",
		SourceAccount: "GBADADDRESS",
	})
	require.Error(t, err)

	_, err = client.BuildUnsignedInvocation(context.Background(), InvocationRequest{
		ContractID:    "CESCROW",
		Method:        "release",
		SourceAccount: "not-valid",
	})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id, method, _ := decodeRPC(t, r)
		require.Equal(t, "getHealth", method)
		rpcReply(t, w, id, map[string]any{"status": "healthy"})
	})
	require.NoError(t, client.Ping(context.Background()))
}

func TestCallSurfacesRPCError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": -32600, "message": "invalid request"},
		}))
	})

	err := client.Ping(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid request")
}
