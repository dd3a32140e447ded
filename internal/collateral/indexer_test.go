package collateral

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

type stubGateway struct {
	pages   []*stellar.EventPage
	queries []stellar.EventQuery
}

func (s *stubGateway) BuildUnsignedInvocation(_ context.Context, _ stellar.InvocationRequest) (*stellar.Invocation, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubGateway) SimulateReadOnlyCall(_ context.Context, _ stellar.InvocationRequest) (json.RawMessage, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubGateway) SubmitSignedEnvelope(_ context.Context, _ string) (*stellar.SubmitResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubGateway) ListContractEvents(_ context.Context, query stellar.EventQuery) (*stellar.EventPage, error) {
	s.queries = append(s.queries, query)
	if len(s.pages) == 0 {
		return &stellar.EventPage{}, nil
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

func (s *stubGateway) Ping(_ context.Context) error { return nil }

func depositEvent(hash string, ledger int64) stellar.ContractEvent {
	return stellar.ContractEvent{
		ID:         uuid.NewString(),
		ContractID: "CCOLLATERAL",
		Ledger:     ledger,
		LedgerTime: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Topics:     []string{depositTopic},
		Value:      json.RawMessage(fmt.Sprintf(`{"metadata_hash":%q}`, hash)),
		TxHash:     "abc123",
	}
}

func seedPendingRecord(repo *stubCollateralRepo, hash string) *models.CollateralRecord {
	record := &models.CollateralRecord{
		ID:           uuid.New(),
		AssetCode:    "WHEAT",
		Amount:       decimal.NewFromInt(100),
		MetadataHash: hash,
		Status:       enums.CollateralStatusPending,
	}
	repo.records[record.ID] = record
	return record
}

func newIndexerFixture(t *testing.T, gateway *stubGateway) (*Indexer, *stubCollateralRepo, *stubOutbox) {
	t.Helper()
	repo := newStubCollateralRepo()
	ob := &stubOutbox{}
	ix, err := NewIndexer(repo, gateway, stubTxRunner{}, ob, "CCOLLATERAL", nil)
	if err != nil {
		t.Fatalf("building indexer: %v", err)
	}
	return ix, repo, ob
}

func TestIndexerMarksMatchingRecordDeposited(t *testing.T) {
	gateway := &stubGateway{pages: []*stellar.EventPage{{
		Events:       []stellar.ContractEvent{depositEvent("hash-1", 42)},
		LatestLedger: 42,
	}}}
	ix, repo, ob := newIndexerFixture(t, gateway)
	record := seedPendingRecord(repo, "hash-1")

	settled, err := ix.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if settled != 1 {
		t.Fatalf("settled = %d, want 1", settled)
	}
	if record.Status != enums.CollateralStatusDeposited {
		t.Fatalf("status = %s, want deposited", record.Status)
	}
	if record.DepositedAt == nil {
		t.Fatal("expected deposited_at set from ledger close time")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventCollateralDeposited {
		t.Fatalf("expected one collateral_deposited event, got %v", ob.events)
	}
}

func TestIndexerIsIdempotentAcrossPasses(t *testing.T) {
	gateway := &stubGateway{pages: []*stellar.EventPage{
		{Events: []stellar.ContractEvent{depositEvent("hash-1", 42)}, LatestLedger: 42},
		{Events: []stellar.ContractEvent{depositEvent("hash-1", 42)}, LatestLedger: 43},
	}}
	ix, repo, ob := newIndexerFixture(t, gateway)
	seedPendingRecord(repo, "hash-1")

	if _, err := ix.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	settled, err := ix.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if settled != 0 {
		t.Fatalf("replayed event settled %d records, want 0", settled)
	}
	if len(ob.events) != 1 {
		t.Fatalf("expected one event total, got %d", len(ob.events))
	}
}

func TestIndexerResumesFromLastLedger(t *testing.T) {
	gateway := &stubGateway{pages: []*stellar.EventPage{
		{LatestLedger: 100},
		{LatestLedger: 120},
	}}
	ix, _, _ := newIndexerFixture(t, gateway)

	if _, err := ix.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := ix.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(gateway.queries) != 2 {
		t.Fatalf("expected two queries, got %d", len(gateway.queries))
	}
	if gateway.queries[0].StartLedger != 1 {
		t.Fatalf("first query starts at %d, want 1", gateway.queries[0].StartLedger)
	}
	if gateway.queries[1].StartLedger != 101 {
		t.Fatalf("second query starts at %d, want 101", gateway.queries[1].StartLedger)
	}
}

func TestIndexerSkipsUnknownAndMalformedEvents(t *testing.T) {
	unknownType := depositEvent("hash-1", 10)
	unknownType.Topics = []string{"mint"}
	malformed := depositEvent("", 11)
	malformed.Value = json.RawMessage(`{broken`)
	orphan := depositEvent("no-matching-record", 12)

	gateway := &stubGateway{pages: []*stellar.EventPage{{
		Events:       []stellar.ContractEvent{unknownType, malformed, orphan},
		LatestLedger: 12,
	}}}
	ix, repo, ob := newIndexerFixture(t, gateway)
	record := seedPendingRecord(repo, "hash-1")

	settled, err := ix.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if settled != 0 {
		t.Fatalf("settled = %d, want 0", settled)
	}
	if record.Status != enums.CollateralStatusPending {
		t.Fatalf("record touched by non-deposit event: %s", record.Status)
	}
	if len(ob.events) != 0 {
		t.Fatalf("expected no events, got %d", len(ob.events))
	}
}

func TestIndexerLosesRaceGracefully(t *testing.T) {
	gateway := &stubGateway{pages: []*stellar.EventPage{{
		Events:       []stellar.ContractEvent{depositEvent("hash-1", 42)},
		LatestLedger: 42,
	}}}
	ix, repo, ob := newIndexerFixture(t, gateway)
	seedPendingRecord(repo, "hash-1")
	lost := false
	repo.markResult = &lost

	settled, err := ix.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if settled != 0 {
		t.Fatalf("settled = %d, want 0 when conditional update loses", settled)
	}
	if len(ob.events) != 0 {
		t.Fatal("no event may be emitted when the update loses the race")
	}
}
