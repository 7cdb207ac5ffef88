package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/bank-auth-service/internal/api/http"
	"github.com/spec-kit/bank-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/bank-auth-service/internal/auth"
	"github.com/spec-kit/bank-auth-service/internal/config"
	"github.com/spec-kit/bank-auth-service/internal/events"
	"github.com/spec-kit/bank-auth-service/internal/observability"
	"github.com/spec-kit/bank-auth-service/internal/persistence"
	"github.com/spec-kit/bank-auth-service/internal/repository"
	"github.com/spec-kit/bank-auth-service/internal/service"
	"github.com/spec-kit/bank-auth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.Pool

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisConn := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redisConn.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	var publisher service.Publisher
	readiness := []handlers.Dependency{{Name: "postgres", Pinger: pg}}
	if redisConn.Enabled() {
		publisher = redisConn
		readiness = append(readiness, handlers.Dependency{Name: "redis", Pinger: redisConn})
	}
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, publisher, cfg.Events))

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL())
	if err != nil {
		logger.Fatal("failed to init token service", zap.Error(err))
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	userRepo := repository.NewUserRepository(pool)

	authService := service.NewAuthService(service.AuthDependencies{
		Verifier:   auth.NewCredentialVerifier(userRepo, hasher),
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	userService := service.NewUserService(userRepo, hasher, dispatcher, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, logger, readiness...),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.Duration("token_ttl", tokens.TTL()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
