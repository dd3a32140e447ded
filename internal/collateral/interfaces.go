package collateral

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
)

// Repository manages persistence for collateral records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.CollateralRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CollateralRecord, error)
	FindByMetadataHash(ctx context.Context, hash string) (*models.CollateralRecord, error)
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.CollateralRecord, error)
	// MarkDeposited flips a pending record to deposited; it reports whether
	// the row was updated.
	MarkDeposited(ctx context.Context, id uuid.UUID, depositedAt time.Time) (bool, error)
}
