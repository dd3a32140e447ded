package webhooks

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/stellovault/stellovault-backend/api/responses"
	"github.com/stellovault/stellovault-backend/api/validators"
	"github.com/stellovault/stellovault-backend/internal/escrows"
	"github.com/stellovault/stellovault-backend/pkg/db/models"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
)

const secretHeader = "X-Webhook-Secret"

type escrowEventProcessor interface {
	ProcessLedgerEvent(ctx context.Context, input escrows.LedgerEventInput) (*models.Escrow, error)
}

// EscrowEvent ingests on-chain escrow status notifications. The caller must
// present the pre-shared secret; comparison is constant-time so the header
// cannot be brute-forced byte by byte. An unconfigured secret disables the
// endpoint rather than letting requests through.
func EscrowEvent(svc escrowEventProcessor, sharedSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if sharedSecret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "webhook secret not configured"))
			return
		}

		provided := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(sharedSecret)) != 1 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
			return
		}

		var input escrows.LedgerEventInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		escrow, err := svc.ProcessLedgerEvent(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, escrow)
	}
}
