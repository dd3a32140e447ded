package loans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

// IssueLoanInput captures the fields required to originate a loan.
type IssueLoanInput struct {
	BorrowerID       uuid.UUID       `json:"borrower_id" validate:"required"`
	LenderID         uuid.UUID       `json:"lender_id" validate:"required"`
	Principal        decimal.Decimal `json:"principal" validate:"required"`
	CollateralAmount decimal.Decimal `json:"collateral_amount" validate:"required"`
	AssetCode        string          `json:"asset_code" validate:"required,min=1,max=12"`
}

// IssueLoanResult pairs the persisted loan with the unsigned issuance
// invocation the borrower's wallet must sign and submit.
type IssueLoanResult struct {
	Loan     *models.Loan        `json:"loan"`
	Envelope *stellar.Invocation `json:"envelope"`
}

// RecordRepaymentInput appends one entry to a loan's repayment ledger.
type RecordRepaymentInput struct {
	LoanID uuid.UUID       `json:"loan_id" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
	PaidAt time.Time       `json:"paid_at"`
}

// ListFilter narrows loan listings.
type ListFilter struct {
	Status     *enums.LoanStatus
	BorrowerID *uuid.UUID
	LenderID   *uuid.UUID
}

// LoanView is a loan plus its derived outstanding balance.
type LoanView struct {
	Loan        *LoanRecord     `json:"loan"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// LoanRecord mirrors the persisted loan for read responses.
type LoanRecord struct {
	ID               uuid.UUID        `json:"id"`
	BorrowerID       uuid.UUID        `json:"borrower_id"`
	LenderID         uuid.UUID        `json:"lender_id"`
	Principal        decimal.Decimal  `json:"principal"`
	CollateralAmount decimal.Decimal  `json:"collateral_amount"`
	AssetCode        string           `json:"asset_code"`
	Status           enums.LoanStatus `json:"status"`
	EscrowAddress    *string          `json:"escrow_address,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// LoanIssuedEvent is the outbox payload for loan origination.
type LoanIssuedEvent struct {
	LoanID           uuid.UUID       `json:"loan_id"`
	BorrowerID       uuid.UUID       `json:"borrower_id"`
	LenderID         uuid.UUID       `json:"lender_id"`
	Principal        decimal.Decimal `json:"principal"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"`
	AssetCode        string          `json:"asset_code"`
}

// RepaymentRecordedEvent is the outbox payload for a repayment entry.
type RepaymentRecordedEvent struct {
	LoanID      uuid.UUID       `json:"loan_id"`
	Amount      decimal.Decimal `json:"amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	PaidAt      time.Time       `json:"paid_at"`
}

// LoanStatusEvent is the outbox payload for terminal loan transitions.
type LoanStatusEvent struct {
	LoanID uuid.UUID        `json:"loan_id"`
	Status enums.LoanStatus `json:"status"`
}
