package oracles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
)

// Repository manages persistence for oracles, confirmations, disputes, and
// rate counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOracle(ctx context.Context, oracle *models.Oracle) error
	FindOracleByAddress(ctx context.Context, address string) (*models.Oracle, error)
	SetOracleActive(ctx context.Context, id uuid.UUID, active bool, deactivatedAt *time.Time) error
	ListOracles(ctx context.Context, activeOnly bool) ([]models.Oracle, error)
	// CountOracles returns the number of active and inactive oracles.
	CountOracles(ctx context.Context) (active int64, inactive int64, err error)

	CreateConfirmation(ctx context.Context, confirmation *models.OracleConfirmation) error
	ConfirmationExists(ctx context.Context, oracleID, escrowID uuid.UUID, eventType enums.OracleEventType) (bool, error)
	ListConfirmationsByEscrow(ctx context.Context, escrowID uuid.UUID) ([]models.OracleConfirmation, error)
	CountConfirmationsByEventType(ctx context.Context, since time.Time) (map[enums.OracleEventType]int64, error)

	CreateDispute(ctx context.Context, dispute *models.Dispute) error

	// IncrementRateCounter bumps the per-oracle counter for the given window
	// and returns the post-increment count.
	IncrementRateCounter(ctx context.Context, oracleID uuid.UUID, windowStart time.Time) (int, error)
}
