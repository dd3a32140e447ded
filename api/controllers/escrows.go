package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stellovault/stellovault-backend/api/responses"
	"github.com/stellovault/stellovault-backend/api/validators"
	"github.com/stellovault/stellovault-backend/internal/escrows"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
)

func CreateEscrow(svc escrows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input escrows.CreateEscrowInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.CreateEscrow(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func GetEscrow(svc escrows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "escrowID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "escrow id must be a uuid"))
			return
		}

		escrow, err := svc.GetEscrow(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, escrow)
	}
}

func ListEscrows(svc escrows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var filter escrows.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseEscrowStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter"))
				return
			}
			filter.Status = &status
		}
		buyerID, err := validators.ParseQueryUUID(r, "buyer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter.BuyerID = buyerID
		sellerID, err := validators.ParseQueryUUID(r, "seller_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter.SellerID = sellerID

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, next, err := svc.ListEscrows(ctx, filter, pagination.Params{
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
