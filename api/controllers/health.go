package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/davidfuentes/questly-backend/api/responses"
	"github.com/davidfuentes/questly-backend/pkg/config"
	pkgerrors "github.com/davidfuentes/questly-backend/pkg/errors"
	"github.com/davidfuentes/questly-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// ReadinessProbe is any dependency the readiness endpoint should verify.
type ReadinessProbe interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Questly-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies each wired dependency before reporting ready. Probes
// passed as nil are skipped so workers without every backend can reuse it.
func HealthReady(cfg *config.Config, logg *logger.Logger, probes map[string]ReadinessProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Questly-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for name, probe := range probes {
			if probe == nil {
				continue
			}
			if err := probe.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
