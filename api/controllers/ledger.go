package controllers

import (
	"net/http"

	"github.com/stellovault/stellovault-backend/api/responses"
	"github.com/stellovault/stellovault-backend/api/validators"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

type invocationRequestBody struct {
	ContractID    string `json:"contract_id" validate:"required"`
	Method        string `json:"method" validate:"required"`
	Args          []any  `json:"args"`
	SourceAccount string `json:"source_account" validate:"required"`
}

func (b invocationRequestBody) toRequest() stellar.InvocationRequest {
	return stellar.InvocationRequest{
		ContractID:    b.ContractID,
		Method:        b.Method,
		Args:          b.Args,
		SourceAccount: b.SourceAccount,
	}
}

// BuildInvocation prepares an unsigned contract call for wallet-side signing.
func BuildInvocation(gw stellar.Gateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body invocationRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invocation, err := gw.BuildUnsignedInvocation(ctx, body.toRequest())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, invocation)
	}
}

// SimulateCall runs a read-only contract call and returns the raw result.
func SimulateCall(gw stellar.Gateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body invocationRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := gw.SimulateReadOnlyCall(ctx, body.toRequest())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type submitEnvelopeRequest struct {
	EnvelopeXDR string `json:"envelope_xdr" validate:"required"`
}

// SubmitEnvelope relays a wallet-signed transaction envelope to the network
// and waits for finality within the configured polling budget.
func SubmitEnvelope(gw stellar.Gateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req submitEnvelopeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := gw.SubmitSignedEnvelope(ctx, req.EnvelopeXDR)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
