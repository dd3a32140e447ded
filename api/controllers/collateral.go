package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stellovault/stellovault-backend/api/responses"
	"github.com/stellovault/stellovault-backend/api/validators"
	"github.com/stellovault/stellovault-backend/internal/collateral"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/pagination"
)

func CreateCollateral(svc collateral.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input collateral.CreateCollateralInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.CreateCollateral(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func GetCollateral(svc collateral.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "collateralID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "collateral id must be a uuid"))
			return
		}

		record, err := svc.GetCollateral(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func GetCollateralByHash(svc collateral.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		record, err := svc.GetCollateralByMetadataHash(ctx, chi.URLParam(r, "metadataHash"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func ListCollateral(svc collateral.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var filter collateral.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseCollateralStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter"))
				return
			}
			filter.Status = status
		}
		escrowID, err := validators.ParseQueryUUID(r, "escrow_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter.EscrowID = escrowID

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, next, err := svc.ListCollateral(ctx, filter, pagination.Params{
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
