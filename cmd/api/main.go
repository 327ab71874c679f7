package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/venuetix/venuetix-backend/api/controllers"
	"github.com/venuetix/venuetix-backend/api/routes"
	"github.com/venuetix/venuetix-backend/internal/devices"
	"github.com/venuetix/venuetix-backend/internal/scanlogs"
	"github.com/venuetix/venuetix-backend/internal/scans"
	syncsvc "github.com/venuetix/venuetix-backend/internal/sync"
	"github.com/venuetix/venuetix-backend/internal/tickets"
	"github.com/venuetix/venuetix-backend/pkg/config"
	"github.com/venuetix/venuetix-backend/pkg/db"
	"github.com/venuetix/venuetix-backend/pkg/logger"
	"github.com/venuetix/venuetix-backend/pkg/metrics"
	"github.com/venuetix/venuetix-backend/pkg/migrate"
	"github.com/venuetix/venuetix-backend/pkg/outbox"
	"github.com/venuetix/venuetix-backend/pkg/redis"
	"github.com/venuetix/venuetix-backend/pkg/security"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	scanMetrics := metrics.NewScanMetrics(registry)

	codec := security.NewCodec(cfg.Scanning.QRSigningSecret, cfg.Scanning.QRBaseURL)
	ticketRepo := tickets.NewRepository(dbClient.DB())
	scanLogRepo := scanlogs.NewRepository(dbClient.DB())
	deviceRepo := devices.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	scanService, err := scans.NewService(scans.Deps{
		Codec:    codec,
		Tickets:  ticketRepo,
		ScanLogs: scanLogRepo,
		Writer:   scans.NewWriter(dbClient.DB()),
		Emitter:  emitter,
		Tx:       dbClient,
		Metrics:  scanMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scan service", err)
		os.Exit(1)
	}

	syncService, err := syncsvc.NewService(syncsvc.Deps{
		Engine:  scanService,
		Tickets: ticketRepo,
		Devices: deviceRepo,
		Emitter: emitter,
		Tx:      dbClient,
		Metrics: scanMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		ScanService: scanService,
		SyncService: syncService,
		ScanLogs:    scanLogRepo,
		Idempotency: redisClient,
		RateLimiter: redisClient,
		Probes: map[string]controllers.ReadinessProbe{
			"database": dbClient.Ping,
			"redis":    redisClient.Ping,
		},
		Registry: registry,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
