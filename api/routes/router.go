package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stellovault/stellovault-backend/api/controllers"
	webhookcontrollers "github.com/stellovault/stellovault-backend/api/controllers/webhooks"
	"github.com/stellovault/stellovault-backend/api/middleware"
	"github.com/stellovault/stellovault-backend/internal/collateral"
	"github.com/stellovault/stellovault-backend/internal/escrows"
	"github.com/stellovault/stellovault-backend/internal/loans"
	"github.com/stellovault/stellovault-backend/internal/oracles"
	"github.com/stellovault/stellovault-backend/internal/parties"
	"github.com/stellovault/stellovault-backend/pkg/config"
	"github.com/stellovault/stellovault-backend/pkg/db"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/redis"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

// Params bundles everything the router mounts.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      *redis.Client
	Gateway    stellar.Gateway
	Parties    parties.Service
	Escrows    escrows.Service
	Loans      loans.Service
	Oracles    oracles.Service
	Collateral collateral.Service
}

// redisPinger avoids handing the health probe a typed-nil interface when the
// redis client is not wired.
func redisPinger(c *redis.Client) db.Pinger {
	if c == nil {
		return nil
	}
	return c
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var limiter middleware.RateLimiterStore
	if p.Redis != nil {
		limiter = p.Redis
	}

	webhookPolicy := middleware.NewRateLimitPolicy(
		"webhook",
		cfg.RateLimit.WebhookWindow,
		cfg.RateLimit.WebhookIPLimit,
	)
	oraclePolicy := middleware.NewRateLimitPolicy(
		"oracle",
		cfg.RateLimit.OracleWindow,
		cfg.RateLimit.OracleIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, redisPinger(p.Redis), p.Gateway))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.RateLimit(webhookPolicy, limiter, logg)).
			Post("/escrow-events", webhookcontrollers.EscrowEvent(p.Escrows, cfg.Webhook.SharedSecret, logg))
	})

	r.Route("/api/v1/parties", func(r chi.Router) {
		r.Post("/", controllers.CreateParty(p.Parties, logg))
		r.Get("/", controllers.ListParties(p.Parties, logg))
		r.Get("/{partyID}", controllers.GetParty(p.Parties, logg))
		r.Get("/address/{address}", controllers.GetPartyByAddress(p.Parties, logg))
	})

	r.Route("/api/v1/escrows", func(r chi.Router) {
		r.Post("/", controllers.CreateEscrow(p.Escrows, logg))
		r.Get("/", controllers.ListEscrows(p.Escrows, logg))
		r.Get("/{escrowID}", controllers.GetEscrow(p.Escrows, logg))
		r.Get("/{escrowID}/confirmations", controllers.ListEscrowConfirmations(p.Oracles, logg))
	})

	r.Route("/api/v1/loans", func(r chi.Router) {
		r.Post("/", controllers.IssueLoan(p.Loans, logg))
		r.Get("/", controllers.ListLoans(p.Loans, logg))
		r.Get("/{loanID}", controllers.GetLoan(p.Loans, logg))
		r.Post("/{loanID}/activate", controllers.ActivateLoan(p.Loans, logg))
		r.Post("/{loanID}/repayments", controllers.RecordRepayment(p.Loans, logg))
		r.Post("/{loanID}/default", controllers.MarkLoanDefaulted(p.Loans, logg))
	})

	r.Route("/api/v1/oracles", func(r chi.Router) {
		r.Post("/", controllers.RegisterOracle(p.Oracles, logg))
		r.Get("/", controllers.ListOracles(p.Oracles, logg))
		r.Get("/metrics", controllers.OracleMetrics(p.Oracles, logg))
		r.Delete("/{address}", controllers.DeactivateOracle(p.Oracles, logg))
		r.With(middleware.RateLimit(oraclePolicy, limiter, logg)).
			Post("/confirmations", controllers.ConfirmOracleEvent(p.Oracles, logg))
	})

	r.Post("/api/v1/disputes", controllers.FlagDispute(p.Oracles, logg))

	r.Route("/api/v1/collateral", func(r chi.Router) {
		r.Post("/", controllers.CreateCollateral(p.Collateral, logg))
		r.Get("/", controllers.ListCollateral(p.Collateral, logg))
		r.Get("/{collateralID}", controllers.GetCollateral(p.Collateral, logg))
		r.Get("/hash/{metadataHash}", controllers.GetCollateralByHash(p.Collateral, logg))
	})

	r.Route("/api/v1/ledger", func(r chi.Router) {
		r.Post("/invocations", controllers.BuildInvocation(p.Gateway, logg))
		r.Post("/simulations", controllers.SimulateCall(p.Gateway, logg))
		r.Post("/submissions", controllers.SubmitEnvelope(p.Gateway, logg))
	})

	return r
}
