package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/nishantpoudel/assettrace/internal/adapters/nats"
	"github.com/nishantpoudel/assettrace/internal/adapters/postgres"
	"github.com/nishantpoudel/assettrace/internal/adapters/valkey"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
	"github.com/nishantpoudel/assettrace/internal/core/usecases"
	"github.com/nishantpoudel/assettrace/internal/pkg/config"
	"github.com/nishantpoudel/assettrace/internal/pkg/logging"
	"github.com/nishantpoudel/assettrace/internal/workflows"
)

// The scanner is a Temporal worker that runs the scheduled violation scan.
// It also ensures the cron schedule exists, so a fresh deployment needs no
// manual setup step.
func main() {
	cfg, err := config.Load("assettrace-scanner")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx := context.Background()

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
		slog.Warn("nats unavailable, scan reports will not be published", "error", err)
	} else {
		defer publisher.Close()
	}

	tagRepo := postgres.NewTagRepo(db)
	readerRepo := postgres.NewReaderRepo(db)
	assetRepo := postgres.NewAssetRepo(db)
	geofenceRepo := postgres.NewGeofenceRepo(db)
	eventRepo := postgres.NewDetectionEventRepo(db)

	resolverSvc := usecases.NewResolverService(tagRepo, readerRepo, assetRepo, geofenceRepo, cacheSvc)
	violationSvc := usecases.NewViolationService(eventRepo, resolverSvc,
		time.Duration(cfg.Scanner.WindowMinutes)*time.Minute)

	// Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	activities := &workflows.ScanActivities{
		Violations: violationSvc,
	}
	if publisher != nil {
		activities.Publisher = publisher
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ViolationScanWorkflow)
	w.RegisterActivity(activities)

	if err := ensureSchedule(ctx, c, cfg); err != nil {
		slog.Warn("schedule setup failed, scans must be triggered manually", "error", err)
	}

	slog.Info("scanner worker started",
		"task_queue", cfg.Temporal.TaskQueue, "cron", cfg.Scanner.CronSchedule)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// ensureSchedule creates the cron schedule for the scan workflow if it does
// not exist yet.
func ensureSchedule(ctx context.Context, c client.Client, cfg *config.Config) error {
	_, err := c.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: "violation-scan-schedule",
		Spec: client.ScheduleSpec{
			CronExpressions: []string{cfg.Scanner.CronSchedule},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        "violation-scan",
			Workflow:  workflows.ViolationScanWorkflow,
			TaskQueue: cfg.Temporal.TaskQueue,
		},
	})
	if err != nil && !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return err
	}
	return nil
}
