package collateral

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/outbox"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
)

type stubCollateralRepo struct {
	records map[uuid.UUID]*models.CollateralRecord

	markResult *bool
}

func newStubCollateralRepo() *stubCollateralRepo {
	return &stubCollateralRepo{records: map[uuid.UUID]*models.CollateralRecord{}}
}

func (s *stubCollateralRepo) WithTx(_ *gorm.DB) Repository { return s }

func (s *stubCollateralRepo) Create(_ context.Context, record *models.CollateralRecord) error {
	for _, existing := range s.records {
		if existing.MetadataHash == record.MetadataHash {
			return errDuplicateHash{}
		}
	}
	record.ID = uuid.New()
	record.CreatedAt = time.Now().UTC()
	s.records[record.ID] = record
	return nil
}

func (s *stubCollateralRepo) FindByID(_ context.Context, id uuid.UUID) (*models.CollateralRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (s *stubCollateralRepo) FindByMetadataHash(_ context.Context, hash string) (*models.CollateralRecord, error) {
	for _, record := range s.records {
		if record.MetadataHash == hash {
			return record, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCollateralRepo) List(_ context.Context, filter ListFilter, _ *pagination.Cursor, limit int) ([]models.CollateralRecord, error) {
	var out []models.CollateralRecord
	for _, record := range s.records {
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		out = append(out, *record)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubCollateralRepo) MarkDeposited(_ context.Context, id uuid.UUID, depositedAt time.Time) (bool, error) {
	if s.markResult != nil {
		return *s.markResult, nil
	}
	record, ok := s.records[id]
	if !ok || record.Status != enums.CollateralStatusPending {
		return false, nil
	}
	record.Status = enums.CollateralStatusDeposited
	record.DepositedAt = &depositedAt
	return true, nil
}

type errDuplicateHash struct{}

func (errDuplicateHash) Error() string {
	return `duplicate key value violates unique constraint "uq_collateral_metadata_hash"`
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) EmitIfNotExists(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	s.events = append(s.events, event)
	return nil
}

func newCollateralService(t *testing.T, repo *stubCollateralRepo, ob *stubOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, ob, nil)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func TestCreateCollateralStoresPendingRecord(t *testing.T) {
	repo := newStubCollateralRepo()
	ob := &stubOutbox{}
	svc := newCollateralService(t, repo, ob)

	record, err := svc.CreateCollateral(context.Background(), CreateCollateralInput{
		AssetCode: "WHEAT",
		Amount:    decimal.NewFromInt(5000),
		Metadata:  json.RawMessage(`{"warehouse":"odessa-3","grade":"A"}`),
	})
	if err != nil {
		t.Fatalf("creating collateral: %v", err)
	}
	if record.Status != enums.CollateralStatusPending {
		t.Fatalf("status = %s, want pending", record.Status)
	}
	if record.MetadataHash == "" {
		t.Fatal("expected metadata hash to be derived")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventCollateralCreated {
		t.Fatalf("expected one collateral_created event, got %v", ob.events)
	}
}

func TestCreateCollateralRejectsDuplicateMetadata(t *testing.T) {
	repo := newStubCollateralRepo()
	svc := newCollateralService(t, repo, &stubOutbox{})

	input := CreateCollateralInput{
		AssetCode: "COFFEE",
		Amount:    decimal.NewFromInt(1200),
		Metadata:  json.RawMessage(`{"lot":"BR-2026-044"}`),
	}
	if _, err := svc.CreateCollateral(context.Background(), input); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Same metadata with different key order must hash identically.
	input.Metadata = json.RawMessage(`{ "lot" : "BR-2026-044" }`)
	if _, err := svc.CreateCollateral(context.Background(), input); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateCollateralValidation(t *testing.T) {
	svc := newCollateralService(t, newStubCollateralRepo(), &stubOutbox{})

	cases := []struct {
		name  string
		input CreateCollateralInput
	}{
		{"missing asset code", CreateCollateralInput{Amount: decimal.NewFromInt(1), Metadata: json.RawMessage(`{}`)}},
		{"zero amount", CreateCollateralInput{AssetCode: "OIL", Metadata: json.RawMessage(`{}`)}},
		{"negative amount", CreateCollateralInput{AssetCode: "OIL", Amount: decimal.NewFromInt(-5), Metadata: json.RawMessage(`{}`)}},
		{"missing metadata", CreateCollateralInput{AssetCode: "OIL", Amount: decimal.NewFromInt(1)}},
		{"malformed metadata", CreateCollateralInput{AssetCode: "OIL", Amount: decimal.NewFromInt(1), Metadata: json.RawMessage(`{broken`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateCollateral(context.Background(), tc.input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetCollateralByMetadataHash(t *testing.T) {
	repo := newStubCollateralRepo()
	svc := newCollateralService(t, repo, &stubOutbox{})

	created, err := svc.CreateCollateral(context.Background(), CreateCollateralInput{
		AssetCode: "STEEL",
		Amount:    decimal.NewFromInt(300),
		Metadata:  json.RawMessage(`{"mill":"mariupol-1"}`),
	})
	if err != nil {
		t.Fatalf("creating collateral: %v", err)
	}

	found, err := svc.GetCollateralByMetadataHash(context.Background(), created.MetadataHash)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("found %s, want %s", found.ID, created.ID)
	}

	if _, err := svc.GetCollateralByMetadataHash(context.Background(), "no-such-hash"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHashMetadataDeterministic(t *testing.T) {
	a, err := HashMetadata(json.RawMessage(`{"b":2,"a":1}`))
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	b, err := HashMetadata(json.RawMessage(`{"a":1,"b":2}`))
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if a != b {
		t.Fatalf("hashes differ for equivalent metadata: %s vs %s", a, b)
	}

	c, err := HashMetadata(json.RawMessage(`{"a":1,"b":3}`))
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if a == c {
		t.Fatal("different metadata must not collide")
	}
}
