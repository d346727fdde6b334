package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fctanu/ClassConnect/config"
	"github.com/fctanu/ClassConnect/db"
	"github.com/fctanu/ClassConnect/internal/auth/handler"
	repo "github.com/fctanu/ClassConnect/internal/auth/repository/postgres"
	"github.com/fctanu/ClassConnect/internal/auth/service"
	"github.com/fctanu/ClassConnect/internal/defense"
	autherror "github.com/fctanu/ClassConnect/internal/errors"
	"github.com/fctanu/ClassConnect/internal/maintenance"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer dbPool.Close()

	counter, err := newCounter(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}

	sink := defense.NewEventSink(logger, 256)
	sink.Start()
	defer sink.Stop()

	credentialStore := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	sessionService := service.NewSessionService(credentialStore, tokenService, sink, cfg)
	authHandler := handler.NewAuthHandler(sessionService, tokenService, cfg)

	scheduler := maintenance.NewScheduler(
		credentialStore,
		logger,
		time.Duration(cfg.CleanupIntervalHours)*time.Hour,
		time.Duration(cfg.SessionIdleExpiryDays)*24*time.Hour,
	)
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: autherror.NewFiberErrorHandler(logger),
	})

	app.Use(defense.HTTPSRedirect(cfg.IsProduction()))
	app.Use(defense.SuspiciousInput(sink))
	app.Use(defense.NewSanitizer().Middleware())
	app.Use(defense.RateLimit(counter, defense.GeneralLimit(cfg)))

	handler.RegisterRoutes(app, authHandler, defense.RateLimit(counter, defense.AuthLimit(cfg)))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newCounter picks the rate-limit backend: shared Redis counters when
// REDIS_URL is set, process-local windows otherwise.
func newCounter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (defense.Counter, error) {
	if cfg.RedisURL == "" {
		logger.Info("rate limiting with process-local counters")
		return defense.NewMemoryCounter(), nil
	}

	client, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	logger.Info("rate limiting with shared redis counters")
	return defense.NewRedisCounter(client), nil
}
