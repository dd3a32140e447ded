package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stellovault/stellovault-backend/pkg/enums"
)

// Loan is an escrow-collateralized loan. Outstanding balance is never stored:
// it is recomputed from the append-only Repayments history.
type Loan struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BorrowerID       uuid.UUID        `gorm:"column:borrower_id;type:uuid;not null"`
	LenderID         uuid.UUID        `gorm:"column:lender_id;type:uuid;not null"`
	Principal        decimal.Decimal  `gorm:"column:principal;type:numeric(30,9);not null"`
	CollateralAmount decimal.Decimal  `gorm:"column:collateral_amount;type:numeric(30,9);not null"`
	AssetCode        string           `gorm:"column:asset_code;not null"`
	Status           enums.LoanStatus `gorm:"column:status;type:loan_status;not null;default:'pending'"`
	EscrowAddress    *string          `gorm:"column:escrow_address"`
	Repayments       []Repayment      `gorm:"foreignKey:LoanID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Repayment is one entry in a loan's append-only repayment ledger.
type Repayment struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LoanID    uuid.UUID       `gorm:"column:loan_id;type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(30,9);not null"`
	PaidAt    time.Time       `gorm:"column:paid_at;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
