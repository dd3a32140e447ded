package parties

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

type fakeRepository struct {
	createFn        func(ctx context.Context, party *models.Party) error
	findByIDFn      func(ctx context.Context, id uuid.UUID) (*models.Party, error)
	findByAddressFn func(ctx context.Context, address string) (*models.Party, error)
	listFn          func(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Party, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, party *models.Party) error {
	if f.createFn != nil {
		return f.createFn(ctx, party)
	}
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByAddress(ctx context.Context, address string) (*models.Party, error) {
	if f.findByAddressFn != nil {
		return f.findByAddressFn(ctx, address)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Party, error) {
	if f.listFn != nil {
		return f.listFn(ctx, cursor, limit)
	}
	return nil, nil
}

func testAddress(t *testing.T) string {
	t.Helper()
	publicKey, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	address, err := stellar.EncodeAccountID(publicKey)
	if err != nil {
		t.Fatalf("encode address: %v", err)
	}
	return address
}

func TestService_CreateParty(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	var created *models.Party
	repo.createFn = func(ctx context.Context, party *models.Party) error {
		created = party
		return nil
	}

	address := testAddress(t)
	got, err := svc.CreateParty(context.Background(), CreatePartyInput{
		Name:           "Acme Importers",
		StellarAddress: address,
	})
	if err != nil {
		t.Fatalf("CreateParty error: %v", err)
	}
	if created == nil {
		t.Fatal("expected party to be created")
	}
	if got.Name != "Acme Importers" || got.StellarAddress != address {
		t.Fatalf("unexpected party data: %+v", got)
	}
}

func TestService_CreatePartyValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	tests := []struct {
		name  string
		input CreatePartyInput
	}{
		{name: "missing name", input: CreatePartyInput{StellarAddress: testAddress(t)}},
		{name: "missing address", input: CreatePartyInput{Name: "Acme"}},
		{name: "bad address", input: CreatePartyInput{Name: "Acme", StellarAddress: "not-an-address"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateParty(context.Background(), tc.input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_CreatePartyDuplicateAddress(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, party *models.Party) error {
			return errDuplicateAddress{}
		},
	}
	svc, _ := NewService(repo)

	_, err := svc.CreateParty(context.Background(), CreatePartyInput{
		Name:           "Acme",
		StellarAddress: testAddress(t),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

type errDuplicateAddress struct{}

func (errDuplicateAddress) Error() string {
	return `duplicate key value violates unique constraint "uq_parties_stellar_address"`
}

func TestService_GetPartyNotFound(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	_, err := svc.GetParty(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_ListPartiesPagination(t *testing.T) {
	rows := make([]models.Party, 3)
	for i := range rows {
		rows[i] = models.Party{ID: uuid.New(), Name: "p"}
	}
	repo := &fakeRepository{
		listFn: func(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Party, error) {
			if limit != 3 {
				t.Fatalf("expected buffered limit 3, got %d", limit)
			}
			return rows, nil
		},
	}
	svc, _ := NewService(repo)

	got, next, err := svc.ListParties(context.Background(), pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListParties error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected trimmed page of 2, got %d", len(got))
	}
	if next == "" {
		t.Fatal("expected next cursor when more rows exist")
	}
}
