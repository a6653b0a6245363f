package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/appointment-engine/internal/config"
	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/kursadbilgin/appointment-engine/internal/handler"
	"github.com/kursadbilgin/appointment-engine/internal/infra/postgresql"
	infraredis "github.com/kursadbilgin/appointment-engine/internal/infra/redis"
	"github.com/kursadbilgin/appointment-engine/internal/notification"
	"github.com/kursadbilgin/appointment-engine/internal/observability"
	"github.com/kursadbilgin/appointment-engine/internal/processor"
	"github.com/kursadbilgin/appointment-engine/internal/queue"
	"github.com/kursadbilgin/appointment-engine/internal/regional"
	"github.com/kursadbilgin/appointment-engine/internal/repository"
	"github.com/kursadbilgin/appointment-engine/internal/service"
	"github.com/kursadbilgin/appointment-engine/internal/transport"
	"github.com/kursadbilgin/appointment-engine/internal/webhook"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var regionalPool = regional.PoolConfig{
	MaxOpenConns:    10,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume country requests, confirmations and service events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap("worker")
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return runWorker(ctx, cfg, logger)
		},
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	regionalDBs, err := openRegionalDBs(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, regionalDB := range regionalDBs {
			_ = regional.Close(regionalDB)
		}
	}()

	stores, err := regionalStores(ctx, regionalDBs)
	if err != nil {
		return err
	}

	publishBroker, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL, brokerTopology(cfg))
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	publisher := queue.NewRabbitMQPublisher(publishBroker)
	defer publisher.Close()

	consumeBroker, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL, brokerTopology(cfg))
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	metrics := observability.NewMetrics()
	consumer := queue.NewRabbitMQConsumer(consumeBroker, cfg.WorkerPrefetch, logger)
	consumer.SetMetrics(metrics)
	defer consumer.Close()

	router, err := notification.NewRouter(publisher)
	if err != nil {
		return err
	}

	peru, err := processor.NewPeruProcessor(stores[domain.CountryPE], router, logger)
	if err != nil {
		return err
	}
	chile, err := processor.NewChileProcessor(stores[domain.CountryCL], router, logger)
	if err != nil {
		return err
	}
	table, err := processor.NewTable(peru, chile)
	if err != nil {
		return err
	}

	confirmations, err := service.NewConfirmService(repository.NewGormAppointmentRepo(db), router, logger)
	if err != nil {
		return err
	}
	confirmations.SetMetrics(metrics)

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		return err
	}

	worker, err := service.NewWorkerService(consumer, table, confirmations, limiter, cfg.WorkerConcurrency, logger)
	if err != nil {
		return err
	}
	worker.SetMetrics(metrics)

	if endpoint := strings.TrimSpace(cfg.EventWebhookURL); endpoint != "" {
		sink, err := webhook.NewSink(endpoint)
		if err != nil {
			return err
		}
		worker.SetEventSink(sink)
		logger.Info("forwarding service events", zap.String("endpoint", endpoint))
	}

	checks := []handler.ReadinessCheck{
		handler.PostgresCheck("postgres", sqlDB),
		handler.RedisCheck(rdb),
	}
	for country, regionalDB := range regionalDBs {
		checks = append(checks, handler.PostgresCheck("regional_"+strings.ToLower(country.String()), regionalDB.DB))
	}

	app := fiber.New(fiber.Config{
		AppName:               "appointment-engine-worker",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, checks...)

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(groupCtx, app, cfg.WorkerMetricsPort, logger)
	})
	g.Go(func() error {
		return worker.Start(groupCtx)
	})

	logger.Info("worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Int("prefetch", cfg.WorkerPrefetch),
	)
	return g.Wait()
}

func openRegionalDBs(ctx context.Context, cfg *config.Config) (map[domain.CountryISO]*bun.DB, error) {
	dsns := cfg.RegionalDSNs()
	dbs := make(map[domain.CountryISO]*bun.DB, len(domain.SupportedCountries))
	for _, country := range domain.SupportedCountries {
		db, err := regional.Open(ctx, dsns[country.String()], regionalPool)
		if err != nil {
			for _, opened := range dbs {
				_ = regional.Close(opened)
			}
			return nil, fmt.Errorf("regional %s: %w", country, err)
		}
		dbs[country] = db
	}
	return dbs, nil
}

func regionalStores(ctx context.Context, dbs map[domain.CountryISO]*bun.DB) (map[domain.CountryISO]regional.Store, error) {
	stores := make(map[domain.CountryISO]regional.Store, len(dbs))
	for country, db := range dbs {
		store, err := regional.NewBunStore(db, country)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("regional %s: %w", country, err)
		}
		stores[country] = store
	}
	return stores, nil
}
