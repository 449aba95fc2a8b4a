package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/suuupra/livetrack/internal/adapters/nats"
	"github.com/suuupra/livetrack/internal/adapters/postgres"
	"github.com/suuupra/livetrack/internal/adapters/valkey"
	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/core/fanout"
	"github.com/suuupra/livetrack/internal/core/geofence"
	"github.com/suuupra/livetrack/internal/core/livestate"
	"github.com/suuupra/livetrack/internal/core/ports"
	"github.com/suuupra/livetrack/internal/core/usecases"
	"github.com/suuupra/livetrack/internal/pkg/config"
	"github.com/suuupra/livetrack/internal/pkg/logging"
)

// The ingestor drains device reports from the track.report.> stream and
// runs them through the same ingestion pipeline the REST endpoint uses.
// Accepted samples land in Postgres and re-emit on track.position.> for
// the API instances to relay.
func main() {
	cfg, err := config.Load("livetrack-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
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
		slog.Warn("valkey unavailable, position mirror disabled", "error", err)
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

	locationRepo := postgres.NewLocationRepo(db)
	geofenceRepo := postgres.NewGeofenceRepo(db)

	live := livestate.NewCache()
	index := geofence.NewIndex(cfg.Geofence.GridCellDegrees)
	monitor := geofence.NewMonitor(index)
	broker := fanout.NewBroker(cfg.Fanout.SubscriberBuffer)
	defer broker.Close()

	geofenceSvc := usecases.NewGeofenceService(index, geofenceRepo)
	if n, err := geofenceSvc.LoadPersisted(ctx); err != nil {
		slog.Warn("geofence reload failed", "error", err)
	} else {
		slog.Info("geofences loaded", "count", n)
	}

	ingestSvc := usecases.NewIngestService(locationRepo, live, monitor, broker, publisher, cacheSvc, usecases.IngestConfig{
		MaxClockSkew:  time.Duration(cfg.Ingest.MaxClockSkewSeconds) * time.Second,
		RetryAttempts: cfg.Ingest.RetryAttempts,
		RetryBackoff:  time.Duration(cfg.Ingest.RetryBackoffMillis) * time.Millisecond,
	})

	handler := func(ctx context.Context, sample *domain.PositionSample) error {
		_, err := ingestSvc.Submit(ctx, sample)
		if err != nil {
			if _, ok := domain.AsValidation(err); ok {
				// Rejected reports never become deliverable; ack them away.
				slog.Debug("report rejected", "entity_id", sample.EntityID, "error", err)
				return nil
			}
			return err // nak for redelivery
		}
		return nil
	}

	for i := 0; i < cfg.Ingest.Workers; i++ {
		if err := subscriber.SubscribeReports(ctx, handler); err != nil {
			log.Fatalf("subscribe reports: %v", err)
		}
	}

	slog.Info("ingestor running", "workers", cfg.Ingest.Workers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining subscriptions...", "signal", sig.String())
	cancel()
	subscriber.Close()
	slog.Info("ingestor stopped")
}
