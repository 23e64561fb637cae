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

	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/metrics"
	"github.com/askservice/leadmarket-backend/pkg/migrate"
	"github.com/askservice/leadmarket-backend/pkg/outbox"
	"github.com/askservice/leadmarket-backend/pkg/outbox/registry"
	"github.com/askservice/leadmarket-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer pubsubClient.Close()

	catalog, err := registry.NewCatalog(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event catalog: %w", err)
	}
	sender := newPubSubSender(pubsubClient)
	defer sender.Stop()

	reg := prometheus.NewRegistry()
	publisher, err := NewPublisher(PublisherParams{
		Config:   cfg.Outbox,
		Logger:   logg,
		DB:       dbClient,
		Broker:   pubsubClient.Ping,
		Queue:    outbox.NewStore(dbClient.DB()),
		DLQ:      outbox.NewDeadLetterStore(dbClient.DB()),
		Registry: catalog,
		Sender:   sender,
		Metrics:  metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}

	logg.Info(ctx, "starting outbox publisher")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return metrics.Serve(gctx, cfg.App.MetricsAddr, reg, logg) })
	g.Go(func() error { return publisher.Run(gctx) })
	return g.Wait()
}
