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
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/suuupra/livetrack/internal/adapters/http"
	natsadapter "github.com/suuupra/livetrack/internal/adapters/nats"
	"github.com/suuupra/livetrack/internal/adapters/postgres"
	"github.com/suuupra/livetrack/internal/adapters/valkey"
	"github.com/suuupra/livetrack/internal/core/fanout"
	"github.com/suuupra/livetrack/internal/core/geofence"
	"github.com/suuupra/livetrack/internal/core/livestate"
	"github.com/suuupra/livetrack/internal/core/ports"
	"github.com/suuupra/livetrack/internal/core/usecases"
	"github.com/suuupra/livetrack/internal/pkg/config"
	"github.com/suuupra/livetrack/internal/pkg/logging"
	"github.com/suuupra/livetrack/internal/pkg/metrics"
	"github.com/suuupra/livetrack/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("livetrack-api")
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
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
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

	// Cache (optional: degrade to process-local state when unavailable)
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, position mirror disabled", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS (optional: external fan-out degrades to in-process delivery)
	var pubSvc ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, external event delivery disabled", "error", err)
	} else {
		defer publisher.Close()
		pubSvc = publisher
	}

	// Repos
	locationRepo := postgres.NewLocationRepo(db)
	geofenceRepo := postgres.NewGeofenceRepo(db)

	// Tracking engine
	live := livestate.NewCache()
	index := geofence.NewIndex(cfg.Geofence.GridCellDegrees)
	monitor := geofence.NewMonitor(index)
	broker := fanout.NewBroker(cfg.Fanout.SubscriberBuffer)
	defer broker.Close()

	// Use cases
	ingestSvc := usecases.NewIngestService(locationRepo, live, monitor, broker, pubSvc, cacheSvc, usecases.IngestConfig{
		MaxClockSkew:  time.Duration(cfg.Ingest.MaxClockSkewSeconds) * time.Second,
		RetryAttempts: cfg.Ingest.RetryAttempts,
		RetryBackoff:  time.Duration(cfg.Ingest.RetryBackoffMillis) * time.Millisecond,
	})
	querySvc := usecases.NewQueryService(live, locationRepo, index, cacheSvc)
	geofenceSvc := usecases.NewGeofenceService(index, geofenceRepo)

	// Rebuild the fence index from durable storage
	if n, err := geofenceSvc.LoadPersisted(ctx); err != nil {
		slog.Warn("geofence reload failed", "error", err)
	} else {
		slog.Info("geofences loaded", "count", n)
	}

	// Age-based history pruning
	if cfg.Retention.Enabled {
		retention := usecases.NewRetentionService(locationRepo, usecases.RetentionConfig{
			MaxAge:   time.Duration(cfg.Retention.MaxAgeHours) * time.Hour,
			Interval: time.Duration(cfg.Retention.PruneIntervalMinutes) * time.Minute,
		})
		go retention.Run(ctx)
	}

	// DB pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	deps := &http.Dependencies{
		Ingest:    ingestSvc,
		Queries:   querySvc,
		Geofences: geofenceSvc,
		Broker:    broker,
		Publisher: publisher,
		DB:        db,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024, // position reports are small
		AppName:      "LiveTrack API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
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
