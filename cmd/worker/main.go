package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"consenthub/config"
	"consenthub/internal/adapter/kafka"
	pgStorage "consenthub/internal/adapter/storage/postgres"
	"consenthub/internal/service"
	"consenthub/internal/worker"
	"consenthub/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("consenthub-worker", cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Msg("Starting ConsentHub worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	publisher, err := kafka.NewPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Kafka")
	}
	defer publisher.Close()
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka connected")

	consentRepo := pgStorage.NewConsentRepo(pool)
	dsarRepo := pgStorage.NewDSARRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	outboxRepo := pgStorage.NewOutboxRepo(pool)
	snapshotRepo := pgStorage.NewSnapshotRepo(pool)

	analyticsSvc := service.NewAnalyticsService(consentRepo, dsarRepo, snapshotRepo, log)

	dispatcher := worker.NewDispatcher(
		outboxRepo,
		publisher,
		cfg.Worker.OutboxInterval,
		cfg.Worker.OutboxBatchSize,
		cfg.Worker.OutboxMaxAttempts,
		log,
	)
	snapshotter := worker.NewSnapshotter(analyticsSvc, cfg.Worker.SnapshotInterval, log)
	archiver := worker.NewArchiver(auditRepo, cfg.Audit.Retention, cfg.Worker.RetentionInterval, log)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		snapshotter.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		archiver.Run(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down worker...")
	wg.Wait()
	log.Info().Msg("Worker exited")
}
