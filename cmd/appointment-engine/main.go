package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kursadbilgin/appointment-engine/internal/config"
	"github.com/kursadbilgin/appointment-engine/internal/observability"
	"github.com/kursadbilgin/appointment-engine/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "appointment-engine",
		Short:        "Appointment scheduling API and country workers",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(apiCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger.
func bootstrap(component string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger, err := observability.NewLogger(cfg.LogLevel, component)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// brokerTopology keeps the service-events queue off the broker unless a webhook consumes it.
func brokerTopology(cfg *config.Config) queue.Topology {
	return queue.Topology{ServiceEvents: strings.TrimSpace(cfg.EventWebhookURL) != ""}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
