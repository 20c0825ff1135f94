package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nishantpoudel/assettrace/internal/adapters/postgres"
	"github.com/nishantpoudel/assettrace/internal/adapters/valkey"
	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
	"github.com/nishantpoudel/assettrace/internal/core/usecases"
	"github.com/nishantpoudel/assettrace/internal/pkg/config"
	"github.com/nishantpoudel/assettrace/internal/pkg/logging"
	"github.com/nishantpoudel/assettrace/internal/pkg/metrics"

	natsadapter "github.com/nishantpoudel/assettrace/internal/adapters/nats"
)

// The ingestor drains detection reports off the broker and runs each one
// through the same pipeline the REST endpoint uses. Gateways that can speak
// NATS publish here; everything else posts to the API.
func main() {
	cfg, err := config.Load("assettrace-ingestor")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer subscriber.Close()

	tagRepo := postgres.NewTagRepo(db)
	readerRepo := postgres.NewReaderRepo(db)
	assetRepo := postgres.NewAssetRepo(db)
	geofenceRepo := postgres.NewGeofenceRepo(db)
	eventRepo := postgres.NewDetectionEventRepo(db)
	stateRepo := postgres.NewContainmentStateRepo(db)
	alertRepo := postgres.NewAlertRepo(db)

	resolverSvc := usecases.NewResolverService(tagRepo, readerRepo, assetRepo, geofenceRepo, cacheSvc)
	transitionSvc := usecases.NewTransitionService(stateRepo)
	alertSvc := usecases.NewAlertService(alertRepo, publisher)
	ingestSvc := usecases.NewIngestService(eventRepo, readerRepo, resolverSvc, transitionSvc, alertSvc)

	err = subscriber.SubscribeDetections(ctx, func(ctx context.Context, report *domain.DetectionReport) error {
		// Per-message deadline so one slow dependency can't stall the consumer
		msgCtx, msgCancel := context.WithTimeout(ctx, 10*time.Second)
		defer msgCancel()

		result, err := ingestSvc.Ingest(msgCtx, *report)
		switch {
		case errors.Is(err, domain.ErrUnknownTag):
			// Redelivery can't make an unregistered tag appear; ack and move on.
			metrics.EventsRejected.WithLabelValues("unknown_tag").Inc()
			slog.Warn("unknown tag", "epc", report.EPC, "reader_id", report.ReaderID)
			return nil
		case errors.Is(err, domain.ErrUnknownReader):
			metrics.EventsRejected.WithLabelValues("unknown_reader").Inc()
			slog.Warn("unknown reader", "epc", report.EPC, "reader_id", report.ReaderID)
			return nil
		case err != nil:
			metrics.EventsRejected.WithLabelValues("pipeline_error").Inc()
			slog.Error("ingest failed", "epc", report.EPC, "reader_id", report.ReaderID, "error", err)
			return err
		}

		metrics.EventsIngested.WithLabelValues(string(result.Outcome)).Inc()
		if result.Outcome == domain.OutcomeStale {
			metrics.StaleEventsDropped.Inc()
		}
		for _, a := range result.Alerts {
			metrics.AlertsEmitted.WithLabelValues(string(a.Type)).Inc()
		}
		if len(result.Alerts) > 0 {
			slog.Info("detection produced alerts",
				"event_id", result.EventID, "alerts", len(result.Alerts))
		}
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("ingestor started", "nats", cfg.NATS.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
	cancel()
	// Give in-flight messages time to finish before the deferred drains run
	time.Sleep(2 * time.Second)
}
