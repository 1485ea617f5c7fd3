package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/profilehub/backend/internal/application/contextview"
	"github.com/profilehub/backend/internal/application/ingest"
	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/profilehub/backend/internal/infrastructure/cache"
	"github.com/profilehub/backend/internal/infrastructure/config"
	"github.com/profilehub/backend/internal/infrastructure/logger"
	"github.com/profilehub/backend/internal/infrastructure/persistence"
	"github.com/profilehub/backend/internal/infrastructure/subscriber"
	"github.com/profilehub/backend/internal/infrastructure/telemetry"
	opshttp "github.com/profilehub/backend/internal/interfaces/http"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("starting consumer",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Strings("subjects", cfg.Nats.Subjects),
		zap.String("queue_group", cfg.Nats.QueueGroup),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("telemetry shutdown failed", zap.Error(err))
		}
	}()

	metrics := &ingest.Metrics{}
	if err := telemetry.RegisterPipelineMetrics(meterProvider, metrics); err != nil {
		log.Fatal("failed to register pipeline metrics", zap.Error(err))
	}

	uow := persistence.NewGormUnitOfWork(db.DB)
	processor := ingest.NewProcessor(uow, ingest.Config{
		AutoCreateCustomers: cfg.Processor.AutoCreateCustomers,
		NoteLengthThreshold: cfg.Processor.NoteLengthThreshold,
		NoteSummaryLength:   cfg.Processor.NoteSummaryLength,
	}, log, metrics)

	dedupeStore := cache.NewRedisDedupeStore(redisClient, "")
	defer dedupeStore.Close()
	pipeline := ingest.NewDedupeGuard(processor, dedupeStore, shared.DedupeConfig{
		Enabled: cfg.Processor.DedupeEnabled,
		TTL:     cfg.Processor.DedupeTTL,
	}, log, metrics)

	sub, err := subscriber.NewNatsSubscriber(cfg.Nats, pipeline, metrics, log)
	if err != nil {
		log.Fatal("failed to start subscriber", zap.Error(err))
	}
	if err := sub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	var srv *opshttp.Server
	if cfg.HTTP.Enabled {
		builder := contextview.NewBuilder(
			persistence.NewRepositorySet(db.DB),
			contextview.Options{
				EventLimit:       cfg.Context.EventLimit,
				RecentWorkOrders: cfg.Context.RecentWorkOrders,
			},
			log,
		)
		if cfg.Context.CacheEnabled {
			builder.WithCache(cache.NewContextCache(redisClient, cfg.Context.CacheTTL))
		}

		srv = opshttp.NewServer(cfg.HTTP, db, redisClient, sub, metrics, builder, log)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("operational server error", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", zap.String("signal", sig.String()))

	// Stop taking new messages first so in-flight events finish their
	// transactions before the stores go away.
	if err := sub.Drain(); err != nil {
		log.Error("drain failed", zap.Error(err))
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", zap.Error(err))
		}
	}

	cancel()
	stats := metrics.Snapshot()
	log.Info("consumer stopped",
		zap.Int64("received", stats.Received),
		zap.Int64("processed", stats.Processed),
		zap.Int64("rejected", stats.Rejected),
		zap.Int64("failed", stats.Failed),
		zap.Int64("duplicates", stats.Duplicates),
	)
}
