package collateral

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a collateral repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.CollateralRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CollateralRecord, error) {
	var record models.CollateralRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByMetadataHash(ctx context.Context, hash string) (*models.CollateralRecord, error) {
	var record models.CollateralRecord
	if err := r.db.WithContext(ctx).First(&record, "metadata_hash = ?", hash).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.CollateralRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.CollateralRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EscrowID != nil {
		query = query.Where("escrow_id = ?", *filter.EscrowID)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.CollateralRecord
	if err := query.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkDeposited(ctx context.Context, id uuid.UUID, depositedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CollateralRecord{}).
		Where("id = ? AND status = ?", id, enums.CollateralStatusPending).
		Updates(map[string]any{
			"status":       enums.CollateralStatusDeposited,
			"deposited_at": depositedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
