package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN       string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL       string `env:"RABBITMQ_URL,required=true"`
	RedisURL          string `env:"REDIS_URL,required=true"`
	RegionalPEDSN     string `env:"REGIONAL_PE_DSN,required=true"`
	RegionalCLDSN     string `env:"REGIONAL_CL_DSN,required=true"`
	EventWebhookURL   string `env:"EVENT_WEBHOOK_URL"`
	AnnounceRequests  bool   `env:"ANNOUNCE_REQUESTS,default=false"`
	RateLimitPerSec   int    `env:"RATE_LIMIT_PER_SEC,default=50"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=4"`
	WorkerPrefetch    int    `env:"WORKER_PREFETCH,default=10"`
	APIPort           int    `env:"API_PORT,default=8080"`
	WorkerMetricsPort int    `env:"WORKER_METRICS_PORT,default=9091"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// RegionalDSNs returns the regional store DSN for each supported country code.
func (c *Config) RegionalDSNs() map[string]string {
	return map[string]string{
		"PE": c.RegionalPEDSN,
		"CL": c.RegionalCLDSN,
	}
}
