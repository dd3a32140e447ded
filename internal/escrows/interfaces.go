package escrows

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
)

// Repository manages persistence for escrows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, escrow *models.Escrow) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Escrow, error)
	// UpdateStatusFrom transitions status only when the row is still in the
	// expected state; it reports whether the row was updated.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to enums.EscrowStatus, updates map[string]any) (bool, error)
	FindExpired(ctx context.Context, statuses []enums.EscrowStatus, asOf time.Time, limit int) ([]models.Escrow, error)
	CountByStatus(ctx context.Context) (map[enums.EscrowStatus]int64, error)
}
