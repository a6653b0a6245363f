package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/appointment-engine/internal/config"
	"github.com/kursadbilgin/appointment-engine/internal/handler"
	"github.com/kursadbilgin/appointment-engine/internal/infra/postgresql"
	infraredis "github.com/kursadbilgin/appointment-engine/internal/infra/redis"
	"github.com/kursadbilgin/appointment-engine/internal/notification"
	"github.com/kursadbilgin/appointment-engine/internal/observability"
	"github.com/kursadbilgin/appointment-engine/internal/queue"
	"github.com/kursadbilgin/appointment-engine/internal/repository"
	"github.com/kursadbilgin/appointment-engine/internal/service"
	"github.com/kursadbilgin/appointment-engine/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func apiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Serve the appointments HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap("api")
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return runAPI(ctx, cfg, logger)
		},
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
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

	broker, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL, brokerTopology(cfg))
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	publisher := queue.NewRabbitMQPublisher(broker)
	defer publisher.Close()

	router, err := notification.NewRouter(publisher)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	appointments, err := service.NewAppointmentService(repository.NewGormAppointmentRepo(db), router, logger)
	if err != nil {
		return err
	}
	appointments.SetMetrics(metrics)
	appointments.SetAnnounceRequests(cfg.AnnounceRequests)

	app := fiber.New(fiber.Config{
		AppName:               "appointment-engine",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(observability.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, handler.PostgresCheck("postgres", sqlDB), handler.RedisCheck(rdb))
	if err := handler.RegisterDocsRoutes(app); err != nil {
		return err
	}
	if err := handler.RegisterAppointmentRoutes(app, appointments); err != nil {
		return err
	}

	return serve(ctx, app, cfg.APIPort, logger)
}

// serve runs app until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, app *fiber.App, port int, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", port))
		errCh <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
