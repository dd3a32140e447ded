package collateral

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/stellovault/stellovault-backend/pkg/db"
	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/outbox"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the collateral registry operations.
type Service interface {
	CreateCollateral(ctx context.Context, input CreateCollateralInput) (*models.CollateralRecord, error)
	GetCollateral(ctx context.Context, id uuid.UUID) (*models.CollateralRecord, error)
	GetCollateralByMetadataHash(ctx context.Context, hash string) (*models.CollateralRecord, error)
	ListCollateral(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.CollateralRecord, string, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a collateral service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("collateral repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: ob,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// HashMetadata derives the dedup key for an asset description. The JSON is
// round-tripped through a map so key order never changes the hash.
func HashMetadata(metadata json.RawMessage) (string, error) {
	var decoded any
	if err := json.Unmarshal(metadata, &decoded); err != nil {
		return "", fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("canonicalizing metadata: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func (s *service) CreateCollateral(ctx context.Context, input CreateCollateralInput) (*models.CollateralRecord, error) {
	if input.AssetCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset code required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if len(input.Metadata) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "metadata required")
	}
	hash, err := HashMetadata(input.Metadata)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "hash metadata")
	}

	record := &models.CollateralRecord{
		EscrowID:     input.EscrowID,
		AssetCode:    input.AssetCode,
		Amount:       input.Amount,
		MetadataHash: hash,
		Status:       enums.CollateralStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, record); err != nil {
			if dbpkg.IsUniqueViolation(err, "uq_collateral_metadata_hash") {
				return pkgerrors.New(pkgerrors.CodeConflict, "asset with this metadata is already tokenized")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create collateral record")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCollateralCreated,
			AggregateType: enums.AggregateCollateral,
			AggregateID:   record.ID,
			Version:       1,
			Data: CollateralCreatedEvent{
				CollateralID: record.ID,
				AssetCode:    record.AssetCode,
				Amount:       record.Amount,
				MetadataHash: record.MetadataHash,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(ctx, "collateral record created")
	}
	return record, nil
}

func (s *service) GetCollateral(ctx context.Context, id uuid.UUID) (*models.CollateralRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collateral id required")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collateral record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collateral record")
	}
	return record, nil
}

func (s *service) GetCollateralByMetadataHash(ctx context.Context, hash string) (*models.CollateralRecord, error) {
	if hash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "metadata hash required")
	}
	record, err := s.repo.FindByMetadataHash(ctx, hash)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collateral record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collateral record")
	}
	return record, nil
}

func (s *service) ListCollateral(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.CollateralRecord, string, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.List(ctx, filter, cursor, limit+1)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list collateral records")
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
