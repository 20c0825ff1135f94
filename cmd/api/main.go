package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nishantpoudel/assettrace/internal/adapters/http"
	natsadapter "github.com/nishantpoudel/assettrace/internal/adapters/nats"
	"github.com/nishantpoudel/assettrace/internal/adapters/postgres"
	"github.com/nishantpoudel/assettrace/internal/adapters/valkey"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
	"github.com/nishantpoudel/assettrace/internal/core/usecases"
	"github.com/nishantpoudel/assettrace/internal/pkg/config"
	"github.com/nishantpoudel/assettrace/internal/pkg/logging"
	"github.com/nishantpoudel/assettrace/internal/pkg/metrics"
	"github.com/nishantpoudel/assettrace/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("assettrace-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache. The resolver takes an interface, so keep the nil truly nil.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var alertPub ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer publisher.Close()
		alertPub = publisher
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Export connection pool gauges while the server runs
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			}
		}
	}()

	// Repos
	officeRepo := postgres.NewOfficeRepo(db)
	tagRepo := postgres.NewTagRepo(db)
	readerRepo := postgres.NewReaderRepo(db)
	assetRepo := postgres.NewAssetRepo(db)
	geofenceRepo := postgres.NewGeofenceRepo(db)
	eventRepo := postgres.NewDetectionEventRepo(db)
	stateRepo := postgres.NewContainmentStateRepo(db)
	alertRepo := postgres.NewAlertRepo(db)

	// Use cases
	resolverSvc := usecases.NewResolverService(tagRepo, readerRepo, assetRepo, geofenceRepo, cacheSvc)
	transitionSvc := usecases.NewTransitionService(stateRepo)
	alertSvc := usecases.NewAlertService(alertRepo, alertPub)
	ingestSvc := usecases.NewIngestService(eventRepo, readerRepo, resolverSvc, transitionSvc, alertSvc)
	violationSvc := usecases.NewViolationService(eventRepo, resolverSvc,
		time.Duration(cfg.Scanner.WindowMinutes)*time.Minute)
	containmentSvc := usecases.NewContainmentService(assetRepo, geofenceRepo, stateRepo)

	deps := &http.Dependencies{
		Ingest:       ingestSvc,
		Violations:   violationSvc,
		Containments: containmentSvc,
		Offices:      officeRepo,
		Readers:      readerRepo,
		Tags:         tagRepo,
		Events:       eventRepo,
		Alerts:       alertRepo,
		NATS:         natsConn,
		DB:           db,
		Cache:        cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "AssetTrace API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
