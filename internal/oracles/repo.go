package oracles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an oracle repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOracle(ctx context.Context, oracle *models.Oracle) error {
	return r.db.WithContext(ctx).Create(oracle).Error
}

func (r *repository) FindOracleByAddress(ctx context.Context, address string) (*models.Oracle, error) {
	var oracle models.Oracle
	if err := r.db.WithContext(ctx).First(&oracle, "address = ?", address).Error; err != nil {
		return nil, err
	}
	return &oracle, nil
}

func (r *repository) SetOracleActive(ctx context.Context, id uuid.UUID, active bool, deactivatedAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Oracle{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":      active,
			"deactivated_at": deactivatedAt,
		}).Error
}

func (r *repository) ListOracles(ctx context.Context, activeOnly bool) ([]models.Oracle, error) {
	query := r.db.WithContext(ctx).Model(&models.Oracle{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.Oracle
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountOracles(ctx context.Context) (int64, int64, error) {
	type bucket struct {
		IsActive bool
		Total    int64
	}
	var buckets []bucket
	err := r.db.WithContext(ctx).
		Model(&models.Oracle{}).
		Select("is_active, COUNT(*) AS total").
		Group("is_active").
		Scan(&buckets).Error
	if err != nil {
		return 0, 0, err
	}
	var active, inactive int64
	for _, b := range buckets {
		if b.IsActive {
			active = b.Total
		} else {
			inactive = b.Total
		}
	}
	return active, inactive, nil
}

func (r *repository) CreateConfirmation(ctx context.Context, confirmation *models.OracleConfirmation) error {
	return r.db.WithContext(ctx).Create(confirmation).Error
}

func (r *repository) ConfirmationExists(ctx context.Context, oracleID, escrowID uuid.UUID, eventType enums.OracleEventType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OracleConfirmation{}).
		Where("oracle_id = ? AND escrow_id = ? AND event_type = ?", oracleID, escrowID, eventType).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListConfirmationsByEscrow(ctx context.Context, escrowID uuid.UUID) ([]models.OracleConfirmation, error) {
	var rows []models.OracleConfirmation
	err := r.db.WithContext(ctx).
		Where("escrow_id = ?", escrowID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountConfirmationsByEventType(ctx context.Context, since time.Time) (map[enums.OracleEventType]int64, error) {
	type bucket struct {
		EventType enums.OracleEventType
		Total     int64
	}
	var buckets []bucket
	err := r.db.WithContext(ctx).
		Model(&models.OracleConfirmation{}).
		Select("event_type, COUNT(*) AS total").
		Where("created_at >= ?", since).
		Group("event_type").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.OracleEventType]int64, len(buckets))
	for _, b := range buckets {
		counts[b.EventType] = b.Total
	}
	return counts, nil
}

func (r *repository) CreateDispute(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) IncrementRateCounter(ctx context.Context, oracleID uuid.UUID, windowStart time.Time) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO oracle_rate_limits (oracle_id, window_start, count)
		VALUES (?, ?, 1)
		ON CONFLICT (oracle_id, window_start)
		DO UPDATE SET count = oracle_rate_limits.count + 1
		RETURNING count`,
		oracleID, windowStart).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
