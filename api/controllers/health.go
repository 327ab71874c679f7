package controllers

import (
	"context"
	"net/http"

	"github.com/venuetix/venuetix-backend/api/responses"
	"github.com/venuetix/venuetix-backend/pkg/config"
	"github.com/venuetix/venuetix-backend/pkg/logger"
)

// ReadinessProbe checks connectivity to one backing dependency.
type ReadinessProbe func(ctx context.Context) error

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Venuetix-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, probes map[string]ReadinessProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Venuetix-Env", cfg.App.Env)

		status := map[string]string{"status": "ready"}
		healthy := true
		for name, probe := range probes {
			if probe == nil {
				continue
			}
			if err := probe(r.Context()); err != nil {
				healthy = false
				status[name] = "unavailable"
				if logg != nil {
					ctx := logg.WithField(r.Context(), "dependency", name)
					logg.Error(ctx, "readiness probe failed", err)
				}
				continue
			}
			status[name] = "ok"
		}

		if !healthy {
			status["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
