package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/venuetix/venuetix-backend/api/controllers"
	"github.com/venuetix/venuetix-backend/api/middleware"
	"github.com/venuetix/venuetix-backend/internal/scanlogs"
	"github.com/venuetix/venuetix-backend/internal/scans"
	syncsvc "github.com/venuetix/venuetix-backend/internal/sync"
	"github.com/venuetix/venuetix-backend/pkg/config"
	"github.com/venuetix/venuetix-backend/pkg/logger"
	pkgredis "github.com/venuetix/venuetix-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	ScanService *scans.Service
	SyncService *syncsvc.Service
	ScanLogs    scanlogs.Repository
	Idempotency pkgredis.IdempotencyStore
	RateLimiter pkgredis.RateLimiter
	Probes      map[string]controllers.ReadinessProbe
	Registry    *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Probes))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/scans", func(r chi.Router) {
			r.With(middleware.RateLimit(
				deps.RateLimiter, "scan",
				int64(cfg.RateLimit.ScanDeviceLimit), cfg.RateLimit.ScanWindow, logg,
			)).Post("/", controllers.ScanTicket(deps.ScanService, logg))

			r.With(middleware.RateLimit(
				deps.RateLimiter, "sync",
				int64(cfg.RateLimit.SyncDeviceLimit), cfg.RateLimit.SyncWindow, logg,
			)).Post("/sync", controllers.SyncScans(deps.SyncService, logg))
		})

		r.Get("/events/{eventId}/scan-dataset", controllers.ScanDataset(deps.SyncService, logg))
		r.Get("/tickets/{ticketId}/scan-logs", controllers.TicketScanLogs(deps.ScanLogs, logg))
	})

	return r
}
