package loans

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
)

// Repository manages persistence for loans and their repayment ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, loan *models.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	// FindByIDForUpdate locks the loan row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Loan, error)
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to enums.LoanStatus, updates map[string]any) (bool, error)
	CreateRepayment(ctx context.Context, repayment *models.Repayment) error
	SumRepayments(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
	ListRepayments(ctx context.Context, loanID uuid.UUID) ([]models.Repayment, error)
}
