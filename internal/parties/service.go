package parties

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/stellovault/stellovault-backend/pkg/db"
	"github.com/stellovault/stellovault-backend/pkg/db/models"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

// Service defines operations on counterparties.
type Service interface {
	CreateParty(ctx context.Context, input CreatePartyInput) (*models.Party, error)
	GetParty(ctx context.Context, id uuid.UUID) (*models.Party, error)
	GetPartyByAddress(ctx context.Context, address string) (*models.Party, error)
	ListParties(ctx context.Context, params pagination.Params) ([]models.Party, string, error)
}

// CreatePartyInput captures the fields required to register a counterparty.
type CreatePartyInput struct {
	Name           string `json:"name" validate:"required,min=1,max=200"`
	StellarAddress string `json:"stellar_address" validate:"required"`
}

type service struct {
	repo Repository
}

// NewService wires a party service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("parties repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateParty(ctx context.Context, input CreatePartyInput) (*models.Party, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party name required")
	}
	address := strings.TrimSpace(input.StellarAddress)
	if !stellar.IsValidAccountID(address) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stellar address is not a valid account id")
	}

	party := &models.Party{
		Name:           name,
		StellarAddress: address,
	}
	if err := s.repo.Create(ctx, party); err != nil {
		if dbpkg.IsUniqueViolation(err, "uq_parties_stellar_address") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "stellar address already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create party")
	}
	return party, nil
}

func (s *service) GetParty(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	party, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
	}
	return party, nil
}

func (s *service) GetPartyByAddress(ctx context.Context, address string) (*models.Party, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stellar address required")
	}
	party, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
	}
	return party, nil
}

func (s *service) ListParties(ctx context.Context, params pagination.Params) ([]models.Party, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.List(ctx, cursor, limit+1)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parties")
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	next := ""
	if hasMore {
		last := rows[len(rows)-1]
		next = pagination.NextCursorFor(true, last.CreatedAt, last.ID)
	}
	return rows, next, nil
}
