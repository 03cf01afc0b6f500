package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/venuegate/courier/internal/config"
	"github.com/venuegate/courier/internal/handler"
	"github.com/venuegate/courier/internal/infra/postgresql"
	"github.com/venuegate/courier/internal/infra/postgresql/migrations"
	infraredis "github.com/venuegate/courier/internal/infra/redis"
	"github.com/venuegate/courier/internal/observability"
	"github.com/venuegate/courier/internal/provider"
	"github.com/venuegate/courier/internal/repository"
	"github.com/venuegate/courier/internal/service"
	"github.com/venuegate/courier/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	gateway, err := provider.NewWhatsAppGateway(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIToken)
	if err != nil {
		logger.Fatal("whatsapp gateway initialization failed", zap.Error(err))
	}

	deliveries := repository.NewGormDeliveryRepo(db)
	customers := repository.NewGormCustomerRepo(db)

	sendTimeout := time.Duration(cfg.ProviderTimeoutSec) * time.Second
	fanoutDeadline := time.Duration(cfg.FanoutDeadlineSec) * time.Second

	dispatchSvc, err := service.NewDispatchService(deliveries, gateway, limiter, sendTimeout, logger)
	if err != nil {
		logger.Fatal("dispatch service initialization failed", zap.Error(err))
	}

	broadcastSvc, err := service.NewBroadcastService(
		deliveries, customers, gateway, limiter,
		cfg.WorkerConcurrency, sendTimeout, fanoutDeadline, cfg.SegmentCap, logger,
	)
	if err != nil {
		logger.Fatal("broadcast service initialization failed", zap.Error(err))
	}

	feedbackSvc, err := service.NewFeedbackService(
		deliveries, gateway, limiter,
		cfg.WorkerConcurrency, sendTimeout, fanoutDeadline, logger,
	)
	if err != nil {
		logger.Fatal("feedback service initialization failed", zap.Error(err))
	}

	webhookSvc, err := service.NewWebhookService(deliveries, logger)
	if err != nil {
		logger.Fatal("webhook service initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatchSvc.SetMetrics(metrics)
	broadcastSvc.SetMetrics(metrics)
	feedbackSvc.SetMetrics(metrics)
	webhookSvc.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "courier",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterDeliveryRoutes(app, dispatchSvc, broadcastSvc, feedbackSvc); err != nil {
		logger.Fatal("failed to register delivery routes", zap.Error(err))
	}
	if err := handler.RegisterWebhookRoutes(app, webhookSvc); err != nil {
		logger.Fatal("failed to register webhook routes", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	logger.Info("courier api started", zap.Int("port", cfg.APIPort))

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("api server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining requests")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}

	logger.Info("courier api stopped")
}
