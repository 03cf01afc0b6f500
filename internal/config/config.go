package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	WhatsAppAPIURL     string `env:"WHATSAPP_API_URL,required=true"`
	WhatsAppAPIToken   string `env:"WHATSAPP_API_TOKEN,required=true"`
	RateLimitPerSec    int    `env:"RATE_LIMIT_PER_SEC,default=20"`
	WorkerConcurrency  int    `env:"WORKER_CONCURRENCY,default=8"`
	FanoutDeadlineSec  int    `env:"FANOUT_DEADLINE_SEC,default=300"`
	SegmentCap         int    `env:"SEGMENT_CAP,default=500"`
	ProviderTimeoutSec int    `env:"PROVIDER_TIMEOUT_SEC,default=10"`
	APIPort            int    `env:"API_PORT,default=8080"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
