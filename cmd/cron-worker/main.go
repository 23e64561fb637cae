package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/askservice/leadmarket-backend/internal/categories"
	"github.com/askservice/leadmarket-backend/internal/cron"
	"github.com/askservice/leadmarket-backend/internal/notifications"
	"github.com/askservice/leadmarket-backend/internal/requests"
	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/metrics"
	"github.com/askservice/leadmarket-backend/pkg/migrate"
	"github.com/askservice/leadmarket-backend/pkg/outbox"
	"github.com/askservice/leadmarket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	reg := prometheus.NewRegistry()
	service, err := buildService(cfg, logg, dbClient, redisClient, reg)
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return metrics.Serve(gctx, cfg.App.MetricsAddr, reg, logg) })
	g.Go(func() error { return service.Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*cron.Service, error) {
	categoryRepo := categories.NewRepository(dbClient.DB())
	categorySvc, err := categories.NewService(categoryRepo, cfg.Leads.DefaultUnlockCost)
	if err != nil {
		return nil, err
	}
	outboxStore := outbox.NewStore(dbClient.DB())
	sender, err := notifications.NewSender(dbClient, outbox.NewEmitter(outboxStore, logg), logg)
	if err != nil {
		return nil, err
	}
	requestSvc, err := requests.NewService(dbClient, requests.NewRepository(dbClient.DB()), categorySvc, sender, logg)
	if err != nil {
		return nil, err
	}

	expiry, err := cron.NewRequestExpiryJob(cron.RequestExpiryJobParams{
		Logger:     logg,
		Requests:   requestSvc,
		ExpiryDays: cfg.Leads.RequestExpiryDays,
	})
	if err != nil {
		return nil, fmt.Errorf("request expiry job: %w", err)
	}
	notificationCleanup, err := cron.NewPurgeJob(cron.PurgeJobParams{
		Name:          "notification-cleanup",
		Logger:        logg,
		Purge:         cron.NotificationPurge(notifications.NewRepository(dbClient.DB())),
		RetentionDays: cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	outboxRetention, err := cron.NewPurgeJob(cron.PurgeJobParams{
		Name:          "outbox-retention",
		Logger:        logg,
		Purge:         cron.OutboxPurge(outboxStore),
		RetentionDays: cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return nil, err
	}

	registry, err := cron.NewRegistry(expiry, notificationCleanup, outboxRetention)
	if err != nil {
		return nil, err
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cfg.Cron.LockKey), cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Cron.Interval,
	})
}
