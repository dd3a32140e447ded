package escrows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/outbox"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

// createEscrowMethod is the escrow contract entrypoint the buyer's wallet
// signs against.
const createEscrowMethod = "create_escrow"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type envelopeBuilder interface {
	BuildUnsignedInvocation(ctx context.Context, req stellar.InvocationRequest) (*stellar.Invocation, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PartyFinder resolves counterparties referenced by an escrow.
type PartyFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Party, error)
}

// Service defines escrow lifecycle operations.
type Service interface {
	CreateEscrow(ctx context.Context, input CreateEscrowInput) (*CreateEscrowResult, error)
	ProcessLedgerEvent(ctx context.Context, input LedgerEventInput) (*models.Escrow, error)
	GetEscrow(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	ListEscrows(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Escrow, string, error)
	ExpireEscrows(ctx context.Context, limit int) (int, error)
}

type service struct {
	repo       Repository
	parties    PartyFinder
	tx         txRunner
	outbox     outboxPublisher
	gateway    envelopeBuilder
	contractID string
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds an escrow service with the required dependencies.
func NewService(repo Repository, parties PartyFinder, tx txRunner, ob outboxPublisher, gateway envelopeBuilder, contractID string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if parties == nil {
		return nil, fmt.Errorf("party finder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("ledger gateway required")
	}
	return &service{
		repo:       repo,
		parties:    parties,
		tx:         tx,
		outbox:     ob,
		gateway:    gateway,
		contractID: contractID,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// CreateEscrow persists a PENDING record and hands back the unsigned contract
// invocation. The envelope is never submitted here; the buyer's wallet signs
// and the fee-sponsoring layer submits.
func (s *service) CreateEscrow(ctx context.Context, input CreateEscrowInput) (*CreateEscrowResult, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.BuyerID == input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller must differ")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	assetCode := strings.TrimSpace(input.AssetCode)
	if assetCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset code required")
	}
	if !input.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}

	counterparties := make(map[uuid.UUID]*models.Party, 2)
	for _, partyID := range []uuid.UUID{input.BuyerID, input.SellerID} {
		party, err := s.parties.FindByID(ctx, partyID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "referenced party does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
		}
		counterparties[partyID] = party
	}
	buyer := counterparties[input.BuyerID]
	seller := counterparties[input.SellerID]

	envelope, err := s.gateway.BuildUnsignedInvocation(ctx, stellar.InvocationRequest{
		ContractID:    s.contractID,
		Method:        createEscrowMethod,
		SourceAccount: buyer.StellarAddress,
		Args: []any{
			buyer.StellarAddress,
			seller.StellarAddress,
			input.Amount.String(),
			assetCode,
			input.ExpiresAt.UTC().Unix(),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build escrow envelope")
	}

	escrow := &models.Escrow{
		BuyerID:   input.BuyerID,
		SellerID:  input.SellerID,
		Amount:    input.Amount,
		AssetCode: assetCode,
		Status:    enums.EscrowStatusPending,
		ExpiresAt: input.ExpiresAt.UTC(),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, escrow); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create escrow")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEscrowCreated,
			AggregateType: enums.AggregateEscrow,
			AggregateID:   escrow.ID,
			Version:       1,
			Data: EscrowCreatedEvent{
				EscrowID:  escrow.ID,
				BuyerID:   escrow.BuyerID,
				SellerID:  escrow.SellerID,
				Amount:    escrow.Amount,
				AssetCode: escrow.AssetCode,
				ExpiresAt: escrow.ExpiresAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithEscrowID(ctx, escrow.ID.String()), "escrow created")
	}
	return &CreateEscrowResult{Escrow: escrow, Envelope: envelope}, nil
}

// ProcessLedgerEvent applies an on-chain status notification. Replays of the
// current status are no-ops; anything the state machine forbids is rejected.
func (s *service) ProcessLedgerEvent(ctx context.Context, input LedgerEventInput) (*models.Escrow, error) {
	if input.EscrowID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "escrow id required")
	}
	target, ok := MapLedgerStatus(input.LedgerStatus)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown ledger status %q", input.LedgerStatus))
	}

	var escrow *models.Escrow
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.EscrowID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
		}

		if current.Status == target {
			escrow = current
			return nil
		}
		if !CanTransition(current.Status, target) {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("escrow cannot move from %s to %s", current.Status, target))
		}

		updates := map[string]any{}
		if hash := strings.TrimSpace(input.TxHash); hash != "" {
			updates["tx_hash"] = hash
		}
		updated, err := repo.UpdateStatusFrom(ctx, current.ID, current.Status, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "escrow changed concurrently")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventEscrowStatusChanged,
			AggregateType: enums.AggregateEscrow,
			AggregateID:   current.ID,
			Version:       1,
			Data: EscrowStatusChangedEvent{
				EscrowID:   current.ID,
				FromStatus: current.Status,
				ToStatus:   target,
				TxHash:     strings.TrimSpace(input.TxHash),
			},
		}
		if target == enums.EscrowStatusDisputed {
			event.EventType = enums.EventEscrowDisputed
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		current.Status = target
		if hash := strings.TrimSpace(input.TxHash); hash != "" {
			current.TxHash = &hash
		}
		escrow = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithEscrowID(ctx, escrow.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "status", escrow.Status), "escrow ledger event processed")
	}
	return escrow, nil
}

func (s *service) GetEscrow(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "escrow id required")
	}
	escrow, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	return escrow, nil
}

func (s *service) ListEscrows(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Escrow, string, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.List(ctx, filter, cursor, limit+1)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list escrows")
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

// ExpireEscrows cancels pending and funded escrows whose expiry has passed
// without reaching a terminal state. It returns how many rows were swept.
func (s *service) ExpireEscrows(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	asOf := s.now()

	expired, err := s.repo.FindExpired(ctx, []enums.EscrowStatus{
		enums.EscrowStatusPending,
		enums.EscrowStatusFunded,
	}, asOf, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find expired escrows")
	}

	swept := 0
	var errs []error
	for _, row := range expired {
		row := row
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			updated, err := repo.UpdateStatusFrom(ctx, row.ID, row.Status, enums.EscrowStatusCancelled, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel expired escrow")
			}
			if !updated {
				// another worker or a ledger event got here first
				return nil
			}

			return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventEscrowExpired,
				AggregateType: enums.AggregateEscrow,
				AggregateID:   row.ID,
				Version:       1,
				Data: EscrowExpiredEvent{
					EscrowID:  row.ID,
					Status:    enums.EscrowStatusCancelled,
					ExpiredAt: row.ExpiresAt,
				},
			})
		})
		if err != nil {
			// Keep sweeping; one bad row must not strand the rest of the batch.
			errs = append(errs, fmt.Errorf("escrow %s: %w", row.ID, err))
			continue
		}
		swept++
	}

	if s.logg != nil && swept > 0 {
		s.logg.Info(s.logg.WithField(ctx, "count", swept), "expired escrows swept")
	}
	return swept, multierr.Combine(errs...)
}
