// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carterperez-dev/playvault/internal/access"
	"github.com/carterperez-dev/playvault/internal/auth"
	"github.com/carterperez-dev/playvault/internal/config"
	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/document"
	"github.com/carterperez-dev/playvault/internal/feature"
	"github.com/carterperez-dev/playvault/internal/jobs"
	"github.com/carterperez-dev/playvault/internal/tier"
	"github.com/carterperez-dev/playvault/internal/worker"
)

const stopTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := core.NewLogger(cfg.Log).With("component", "worker")
	slog.SetDefault(logger)

	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
				defer cancel()
				if err := tel.Shutdown(shutdownCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			}()
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redis.Close()

	store, err := core.NewObjectStore(cfg.Storage)
	if err != nil {
		return err
	}

	if err := redis.EnsureGroup(ctx, cfg.Documents.Stream, cfg.Documents.ConsumerGroup); err != nil {
		return err
	}

	tierSvc := tier.NewService(tier.NewRepository(db.DB), nil)
	featureSvc := feature.NewService(
		feature.NewRepository(db.DB),
		feature.NewRedisCache(redis.Client),
	)
	accessSvc := access.NewService(tierSvc, featureSvc)

	docRepo := document.NewRepository(db.DB)
	docSvc := document.NewService(
		docRepo,
		store,
		document.NewStreamQueue(redis.Client, cfg.Documents.Stream),
		accessSvc,
		cfg.Documents.MaxSizeBytes(),
	)

	processor := worker.NewProcessor(
		docRepo,
		store,
		worker.NewPDFExtractor(),
		accessSvc,
		logger,
	)
	consumer := worker.NewConsumer(
		redis.Client,
		cfg.Documents.Stream,
		cfg.Documents.ConsumerGroup,
		cfg.Worker.ConsumerName,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.Add("token_cleanup", cfg.Worker.TokenCleanupCron,
		jobs.TokenCleanup(auth.NewRepository(db.DB), logger)); err != nil {
		return err
	}
	if err := scheduler.Add("document_requeue", cfg.Worker.RequeueCron,
		jobs.DocumentRequeue(docSvc, cfg.Documents.StuckAfter)); err != nil {
		return err
	}
	scheduler.Start()

	logger.Info("worker started",
		"stream", cfg.Documents.Stream,
		"group", cfg.Documents.ConsumerGroup,
		"consumer", cfg.Worker.ConsumerName,
	)

	err = consumer.Start(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if stopErr := scheduler.Stop(stopCtx); stopErr != nil {
		logger.Error("scheduler stop error", "error", stopErr)
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("worker stopped")
		return nil
	}
	return err
}
