package loans

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/outbox"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

// minCollateralRatio is the required collateral-to-principal ratio at
// origination.
var minCollateralRatio = decimal.NewFromFloat(1.5)

// balanceEpsilon absorbs sub-stroop rounding noise when comparing balances.
var balanceEpsilon = decimal.New(1, -9)

// issueLoanMethod is the loan contract entrypoint the borrower's wallet signs
// against.
const issueLoanMethod = "issue_loan"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type envelopeBuilder interface {
	BuildUnsignedInvocation(ctx context.Context, req stellar.InvocationRequest) (*stellar.Invocation, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PartyFinder resolves counterparties referenced by a loan.
type PartyFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Party, error)
}

// Service defines loan lifecycle operations.
type Service interface {
	IssueLoan(ctx context.Context, input IssueLoanInput) (*IssueLoanResult, error)
	ActivateLoan(ctx context.Context, id uuid.UUID, escrowAddress string) (*models.Loan, error)
	RecordRepayment(ctx context.Context, input RecordRepaymentInput) (*LoanView, error)
	MarkDefaulted(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	GetLoan(ctx context.Context, id uuid.UUID) (*LoanView, error)
	ListLoans(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Loan, string, error)
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

// NewService builds a loan service with the required dependencies.
func NewService(repo Repository, parties PartyFinder, tx txRunner, ob outboxPublisher, gateway envelopeBuilder, contractID string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("loan repository required")
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

// IssueLoan persists a PENDING loan and returns it with the unsigned issuance
// invocation for the borrower's wallet.
func (s *service) IssueLoan(ctx context.Context, input IssueLoanInput) (*IssueLoanResult, error) {
	if input.BorrowerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrower id required")
	}
	if input.LenderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lender id required")
	}
	if input.BorrowerID == input.LenderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrower and lender must differ")
	}
	if !input.Principal.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "principal must be positive")
	}
	if !input.CollateralAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collateral amount must be positive")
	}
	if input.CollateralAmount.LessThan(input.Principal.Mul(minCollateralRatio)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("collateral must be at least %s times the principal", minCollateralRatio.String()))
	}
	assetCode := strings.TrimSpace(input.AssetCode)
	if assetCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset code required")
	}

	counterparties := make(map[uuid.UUID]*models.Party, 2)
	for _, partyID := range []uuid.UUID{input.BorrowerID, input.LenderID} {
		party, err := s.parties.FindByID(ctx, partyID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "referenced party does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
		}
		counterparties[partyID] = party
	}
	borrower := counterparties[input.BorrowerID]
	lender := counterparties[input.LenderID]

	envelope, err := s.gateway.BuildUnsignedInvocation(ctx, stellar.InvocationRequest{
		ContractID:    s.contractID,
		Method:        issueLoanMethod,
		SourceAccount: borrower.StellarAddress,
		Args: []any{
			borrower.StellarAddress,
			lender.StellarAddress,
			input.Principal.String(),
			input.CollateralAmount.String(),
			assetCode,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build issuance envelope")
	}

	loan := &models.Loan{
		BorrowerID:       input.BorrowerID,
		LenderID:         input.LenderID,
		Principal:        input.Principal,
		CollateralAmount: input.CollateralAmount,
		AssetCode:        assetCode,
		Status:           enums.LoanStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loan")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLoanIssued,
			AggregateType: enums.AggregateLoan,
			AggregateID:   loan.ID,
			Version:       1,
			Data: LoanIssuedEvent{
				LoanID:           loan.ID,
				BorrowerID:       loan.BorrowerID,
				LenderID:         loan.LenderID,
				Principal:        loan.Principal,
				CollateralAmount: loan.CollateralAmount,
				AssetCode:        loan.AssetCode,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithLoanID(ctx, loan.ID.String()), "loan issued")
	}
	return &IssueLoanResult{Loan: loan, Envelope: envelope}, nil
}

// ActivateLoan moves a pending loan to active once the collateral escrow is
// funded on the ledger.
func (s *service) ActivateLoan(ctx context.Context, id uuid.UUID, escrowAddress string) (*models.Loan, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	escrowAddress = strings.TrimSpace(escrowAddress)
	if escrowAddress != "" && !stellar.IsValidAccountID(escrowAddress) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "escrow address is not a valid account id")
	}

	var loan *models.Loan
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}
		if current.Status == enums.LoanStatusActive {
			loan = current
			return nil
		}
		if current.Status != enums.LoanStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "loan cannot be activated in current state")
		}

		updates := map[string]any{}
		if escrowAddress != "" {
			updates["escrow_address"] = escrowAddress
		}
		updated, err := repo.UpdateStatusFrom(ctx, id, enums.LoanStatusPending, enums.LoanStatusActive, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate loan")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "loan changed concurrently")
		}

		current.Status = enums.LoanStatusActive
		if escrowAddress != "" {
			current.EscrowAddress = &escrowAddress
		}
		loan = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// RecordRepayment appends a repayment and recomputes the outstanding balance
// from the full history under a row lock.
func (s *service) RecordRepayment(ctx context.Context, input RecordRepaymentInput) (*LoanView, error) {
	if input.LoanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "repayment amount must be positive")
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	var view *LoanView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loan, err := repo.FindByIDForUpdate(ctx, input.LoanID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}
		switch loan.Status {
		case enums.LoanStatusPending, enums.LoanStatusActive:
		case enums.LoanStatusRepaid:
			return pkgerrors.New(pkgerrors.CodeValidation, "loan is already fully repaid")
		default:
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("repayments are not accepted while the loan is %s", loan.Status))
		}

		repaid, err := repo.SumRepayments(ctx, loan.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum repayments")
		}
		outstanding := loan.Principal.Sub(repaid)
		if outstanding.LessThanOrEqual(balanceEpsilon) {
			return pkgerrors.New(pkgerrors.CodeValidation, "loan is already fully repaid")
		}
		if input.Amount.GreaterThan(outstanding.Add(balanceEpsilon)) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("repayment %s exceeds outstanding balance %s", input.Amount, outstanding)).
				WithDetails(map[string]string{"outstanding": outstanding.String()})
		}

		repayment := &models.Repayment{
			LoanID: loan.ID,
			Amount: input.Amount,
			PaidAt: paidAt.UTC(),
		}
		if err := repo.CreateRepayment(ctx, repayment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record repayment")
		}

		// The first repayment activates a pending loan.
		if loan.Status == enums.LoanStatusPending {
			updated, err := repo.UpdateStatusFrom(ctx, loan.ID, enums.LoanStatusPending, enums.LoanStatusActive, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate loan")
			}
			if !updated {
				return pkgerrors.New(pkgerrors.CodeConflict, "loan changed concurrently")
			}
			loan.Status = enums.LoanStatusActive
		}

		remaining := outstanding.Sub(input.Amount)
		if remaining.LessThanOrEqual(balanceEpsilon) {
			remaining = decimal.Zero
			updated, err := repo.UpdateStatusFrom(ctx, loan.ID, enums.LoanStatusActive, enums.LoanStatusRepaid, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close loan")
			}
			if !updated {
				return pkgerrors.New(pkgerrors.CodeConflict, "loan changed concurrently")
			}
			loan.Status = enums.LoanStatusRepaid
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventLoanRepaid,
				AggregateType: enums.AggregateLoan,
				AggregateID:   loan.ID,
				Version:       1,
				Data:          LoanStatusEvent{LoanID: loan.ID, Status: enums.LoanStatusRepaid},
			}); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLoanRepaymentRecorded,
			AggregateType: enums.AggregateLoan,
			AggregateID:   loan.ID,
			Version:       1,
			Data: RepaymentRecordedEvent{
				LoanID:      loan.ID,
				Amount:      input.Amount,
				Outstanding: remaining,
				PaidAt:      repayment.PaidAt,
			},
		}); err != nil {
			return err
		}

		view = &LoanView{Loan: toRecord(loan), Outstanding: remaining}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithLoanID(ctx, view.Loan.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "outstanding", view.Outstanding.String()), "repayment recorded")
	}
	return view, nil
}

// MarkDefaulted flips an active loan to defaulted. Terminal states reject.
func (s *service) MarkDefaulted(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}

	var loan *models.Loan
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}
		if current.Status == enums.LoanStatusDefaulted {
			loan = current
			return nil
		}
		if current.Status != enums.LoanStatusActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "only active loans can default")
		}

		updated, err := repo.UpdateStatusFrom(ctx, id, enums.LoanStatusActive, enums.LoanStatusDefaulted, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "default loan")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "loan changed concurrently")
		}
		current.Status = enums.LoanStatusDefaulted
		loan = current

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLoanDefaulted,
			AggregateType: enums.AggregateLoan,
			AggregateID:   loan.ID,
			Version:       1,
			Data:          LoanStatusEvent{LoanID: loan.ID, Status: enums.LoanStatusDefaulted},
		})
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

func (s *service) GetLoan(ctx context.Context, id uuid.UUID) (*LoanView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
	}
	repaid, err := s.repo.SumRepayments(ctx, loan.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum repayments")
	}
	outstanding := loan.Principal.Sub(repaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	return &LoanView{Loan: toRecord(loan), Outstanding: outstanding}, nil
}

func (s *service) ListLoans(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Loan, string, error) {
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
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loans")
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

func toRecord(loan *models.Loan) *LoanRecord {
	return &LoanRecord{
		ID:               loan.ID,
		BorrowerID:       loan.BorrowerID,
		LenderID:         loan.LenderID,
		Principal:        loan.Principal,
		CollateralAmount: loan.CollateralAmount,
		AssetCode:        loan.AssetCode,
		Status:           loan.Status,
		EscrowAddress:    loan.EscrowAddress,
		CreatedAt:        loan.CreatedAt,
	}
}
