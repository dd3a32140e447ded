package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stellovault/stellovault-backend/api/responses"
	"github.com/stellovault/stellovault-backend/api/validators"
	"github.com/stellovault/stellovault-backend/internal/loans"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
)

func IssueLoan(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input loans.IssueLoanInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.IssueLoan(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type activateLoanRequest struct {
	EscrowAddress string `json:"escrow_address,omitempty"`
}

func ActivateLoan(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseLoanID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req activateLoanRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		loan, err := svc.ActivateLoan(ctx, id, req.EscrowAddress)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, loan)
	}
}

type recordRepaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	PaidAt time.Time       `json:"paid_at"`
}

func RecordRepayment(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseLoanID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req recordRepaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.RecordRepayment(ctx, loans.RecordRepaymentInput{
			LoanID: id,
			Amount: req.Amount,
			PaidAt: req.PaidAt,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func MarkLoanDefaulted(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseLoanID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		loan, err := svc.MarkDefaulted(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, loan)
	}
}

func GetLoan(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseLoanID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.GetLoan(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ListLoans(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var filter loans.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseLoanStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter"))
				return
			}
			filter.Status = &status
		}
		borrowerID, err := validators.ParseQueryUUID(r, "borrower_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter.BorrowerID = borrowerID
		lenderID, err := validators.ParseQueryUUID(r, "lender_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter.LenderID = lenderID

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, next, err := svc.ListLoans(ctx, filter, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteList(w, rows, next)
	}
}

func parseLoanID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "loanID"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id must be a uuid")
	}
	return id, nil
}
