// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	redis_rate "github.com/go-redis/redis_rate/v10"

	"github.com/carterperez-dev/playvault/internal/access"
	"github.com/carterperez-dev/playvault/internal/admin"
	"github.com/carterperez-dev/playvault/internal/auth"
	"github.com/carterperez-dev/playvault/internal/config"
	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/document"
	"github.com/carterperez-dev/playvault/internal/feature"
	"github.com/carterperez-dev/playvault/internal/game"
	"github.com/carterperez-dev/playvault/internal/health"
	"github.com/carterperez-dev/playvault/internal/jobs"
	"github.com/carterperez-dev/playvault/internal/middleware"
	"github.com/carterperez-dev/playvault/internal/score"
	"github.com/carterperez-dev/playvault/internal/server"
	"github.com/carterperez-dev/playvault/internal/tier"
	"github.com/carterperez-dev/playvault/internal/user"
)

const (
	drainDelay       = 5 * time.Second
	sessionSweepSpec = "0 * * * * *"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
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

	logger := core.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := core.Migrate(ctx, db.DB); err != nil {
			return err
		}
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	store, err := core.NewObjectStore(cfg.Storage)
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}
	logger.Info("object storage ready", "bucket", cfg.Storage.Bucket)

	if !cfg.IsProduction() {
		if err := ensureDevKeys(cfg.JWT); err != nil {
			return err
		}
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	tierRepo := tier.NewRepository(db.DB)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, tierRepo, cfg.App.DefaultTier)
	userHandler := user.NewHandler(userSvc)

	tierSvc := tier.NewService(tierRepo, userSvc)
	tierHandler := tier.NewHandler(tierSvc)

	featureSvc := feature.NewService(
		feature.NewRepository(db.DB),
		feature.NewRedisCache(redis.Client),
	)
	featureHandler := feature.NewHandler(featureSvc)

	accessSvc := access.NewService(tierSvc, featureSvc)
	accessHandler := access.NewHandler(accessSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(
		authRepo,
		jwtManager,
		userSvc,
		auth.NewRedisBlacklist(redis.Client),
		logger,
	)
	authHandler := auth.NewHandler(authSvc, cfg.Cookie)

	gameSvc := game.NewService(game.NewRepository(db.DB), accessSvc)
	scoreSvc := score.NewService(
		score.NewRepository(db.DB),
		gameSvc,
		accessSvc,
		cfg.Games.Origin,
		cfg.Games.MaxScoreValue,
	)
	scoreHandler := score.NewHandler(scoreSvc)

	sessions := game.NewSessions(game.SessionConfig{
		Origin:      cfg.Games.Origin,
		IdleTTL:     cfg.Games.SessionIdleTTL,
		EventBuffer: cfg.Games.EventBufferSize,
		Recorder:    scoreSvc,
		Logger:      logger,
	})
	gameHandler := game.NewHandler(gameSvc, sessions)

	docSvc := document.NewService(
		document.NewRepository(db.DB),
		store,
		document.NewStreamQueue(redis.Client, cfg.Documents.Stream),
		accessSvc,
		cfg.Documents.MaxSizeBytes(),
	)
	docHandler := document.NewHandler(docSvc, cfg.Documents.MaxSizeBytes())

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "storage", Checker: store},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Documents:  docSvc,
		QueueDepth: func(ctx context.Context) (int64, error) {
			return redis.StreamDepth(ctx, cfg.Documents.Stream)
		},
		LiveSessions: sessions.Len,
	})

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.Add("session_sweep", sessionSweepSpec,
		jobs.SessionSweep(sessions, logger)); err != nil {
		return err
	}
	scheduler.Start()

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	verify := middleware.Authenticator(authSvc, cfg.Cookie.AccessName)
	tiered := middleware.TieredRateLimiter(
		access.NewRequestBudgets(tierSvc, middleware.DefaultTierLimits),
		redis_rate.NewLimiter(redis.Client),
		middleware.DefaultTierLimits,
	)
	authenticator := func(next http.Handler) http.Handler {
		return verify(tiered(next))
	}
	optionalAuth := middleware.OptionalAuth(authSvc, cfg.Cookie.AccessName)
	uploadLimit := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit: middleware.PerHour(
			cfg.Documents.UploadsPerHour,
			max(cfg.Documents.UploadsPerHour/10, 1),
		),
		KeyFunc:  middleware.KeyByUserAndEndpoint,
		FailOpen: true,
	}).Handler
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		r.Post("/users", authHandler.Register)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)

		tierHandler.RegisterRoutes(r, authenticator, adminOnly)
		featureHandler.RegisterRoutes(r, authenticator, adminOnly)
		accessHandler.RegisterRoutes(r, authenticator)
		gameHandler.RegisterRoutes(r,
			authenticator, optionalAuth, adminOnly, accessSvc.RequireURLParam("slug"))
		scoreHandler.RegisterRoutes(r, authenticator)
		docHandler.RegisterRoutes(r, authenticator, uploadLimit)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler stop error", "error", err)
	}

	if n := sessions.Sweep(shutdownCtx); n > 0 {
		logger.Info("closed idle game sessions", "count", n)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// ensureDevKeys writes a fresh signing key pair when none exists, so a
// development checkout starts without manual key setup.
func ensureDevKeys(cfg config.JWTConfig) error {
	if _, err := os.Stat(cfg.PrivateKeyPath); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	for _, p := range []string{cfg.PrivateKeyPath, cfg.PublicKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return fmt.Errorf("create key dir: %w", err)
		}
	}

	if err := auth.GenerateKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath); err != nil {
		return err
	}
	slog.Warn("generated development signing keys", "path", cfg.PrivateKeyPath)
	return nil
}
