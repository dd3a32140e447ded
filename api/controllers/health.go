package controllers

import (
	"context"
	"net/http"

	"github.com/stellovault/stellovault-backend/api/responses"
	"github.com/stellovault/stellovault-backend/pkg/config"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-StelloVault-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness of every dependency the API needs to serve
// traffic. A nil pinger is treated as "not wired" and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, stellarP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-StelloVault-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true
		probe := func(name string, p pinger) {
			if p == nil {
				checks[name] = "skipped"
				return
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "unreachable"
				healthy = false
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness probe failed", err)
				}
				return
			}
			checks[name] = "ok"
		}

		probe("postgres", dbP)
		probe("redis", redisP)
		probe("stellar_rpc", stellarP)

		if !healthy {
			responses.WriteError(ctx, nil, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
